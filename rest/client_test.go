package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/interaction"
	"github.com/xraph/herald/rest"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *rest.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return rest.NewClient(rest.WithBaseURL(srv.URL), rest.WithHTTPClient(srv.Client()))
}

func TestExchangeCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			t.Errorf("expected basic auth client:secret, got %q:%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("scope"); got != rest.ScopeCommandsUpdate {
			t.Errorf("scope = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":604800}`))
	})

	tok, err := c.ExchangeCredentials(context.Background(), "client", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-123" {
		t.Fatalf("expected tok-123, got %q", tok)
	}
}

func TestExchangeCredentialsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})

	_, err := c.ExchangeCredentials(context.Background(), "client", "wrong")
	var apiErr *rest.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "invalid_client") {
		t.Fatalf("expected verbatim body, got %q", apiErr.Body)
	}
}

func TestListCommandsGuildScope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/applications/app/guilds/g1/commands" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`[{"id":"1","name":"ping","type":1,"description":"Ping","version":"9"}]`))
	})

	cmds, err := c.ListCommands(context.Background(), "app", "tok", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 || cmds[0].ID != "1" || cmds[0].Name != "ping" || cmds[0].Version != "9" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
}

func TestCreatePatchDelete(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, r.Method+" "+r.URL.Path+" "+string(body))
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Write([]byte(`{"id":"42","name":"ping","description":"Ping"}`))
		}
	})
	ctx := context.Background()

	created, err := c.CreateCommand(ctx, "app", "tok", command.Spec{Name: "ping", Description: "Ping"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "42" {
		t.Fatalf("expected id 42, got %q", created.ID)
	}
	if _, err := c.PatchCommand(ctx, "app", "tok", "42", map[string]any{"description": "Ping"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteCommand(ctx, "app", "tok", "42", ""); err != nil {
		t.Fatal(err)
	}

	want := []string{
		`POST /applications/app/commands {"name":"ping","description":"Ping"}`,
		`PATCH /applications/app/commands/42 {"description":"Ping"}`,
		`DELETE /applications/app/commands/42 `,
	}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestAPIErrorVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":50035,"message":"Invalid Form Body"}`))
	})

	err := c.DeleteCommand(context.Background(), "app", "tok", "7", "")
	var apiErr *rest.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Method != http.MethodDelete || apiErr.Endpoint != "/applications/app/commands/7" {
		t.Fatalf("unexpected method/endpoint %s %s", apiErr.Method, apiErr.Endpoint)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Body != `{"code":50035,"message":"Invalid Form Body"}` {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestWebhookCallsHaveNoBearer(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("webhook call must not carry a bearer token")
		}
		paths = append(paths, r.Method+" "+r.URL.Path)
		var msg interaction.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatal(err)
		}
		msg.ID = "m1"
		json.NewEncoder(w).Encode(msg)
	})
	ctx := context.Background()

	edited, err := c.EditOriginalResponse(ctx, "app", "itok", &interaction.Message{Content: "done"})
	if err != nil {
		t.Fatal(err)
	}
	if edited.ID != "m1" || edited.Content != "done" {
		t.Fatalf("unexpected message %+v", edited)
	}
	if _, err := c.SendFollowupMessage(ctx, "app", "itok", &interaction.Message{Content: "more"}); err != nil {
		t.Fatal(err)
	}

	if len(paths) != 2 ||
		paths[0] != "PATCH /webhooks/app/itok/messages/@original" ||
		paths[1] != "POST /webhooks/app/itok" {
		t.Fatalf("unexpected calls %v", paths)
	}
}
