package registry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/rest"
)

// fakeAPI is an in-memory command registry that behaves like the platform:
// records round-trip through JSON and the type is defaulted on write.
type fakeAPI struct {
	mu       sync.Mutex
	commands map[string][]command.Remote // by guild id, "" for global
	nextID   int
	calls    []string
	patches  []map[string]any
	failOn   string // "create", "patch" or "delete"
	failAt   int    // 1-based index of the failing call of that kind
	counts   map[string]int
	inFlight int
	overlap  bool
}

func newFakeAPI(remote ...command.Remote) *fakeAPI {
	f := &fakeAPI{commands: map[string][]command.Remote{}, nextID: 100, counts: map[string]int{}}
	for _, r := range remote {
		f.commands[r.GuildID] = append(f.commands[r.GuildID], roundTrip(r))
	}
	return f
}

func roundTrip(r command.Remote) command.Remote {
	raw, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	var out command.Remote
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	out.Type = out.Type.OrDefault()
	return out
}

func (f *fakeAPI) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.counts[op]++
	if f.failOn == op && f.counts[op] == f.failAt {
		return &rest.APIError{Method: http.MethodPost, Endpoint: "/fake/" + op, StatusCode: http.StatusBadRequest, Body: `{"message":"boom"}`}
	}
	return nil
}

func (f *fakeAPI) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeAPI) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		switch c[:4] {
		case "crea", "patc", "dele":
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) ExchangeCredentials(_ context.Context, clientID, clientSecret string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "token")
	if clientSecret == "bad" {
		return "", &rest.APIError{Method: http.MethodPost, Endpoint: "/oauth2/token", StatusCode: http.StatusUnauthorized, Body: "invalid_client"}
	}
	return "tok-" + clientID, nil
}

func (f *fakeAPI) ListCommands(_ context.Context, _, _, guildID string) ([]command.Remote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list "+guildID)
	out := make([]command.Remote, len(f.commands[guildID]))
	for i, r := range f.commands[guildID] {
		out[i] = roundTrip(r)
	}
	return out, nil
}

func (f *fakeAPI) CreateCommand(_ context.Context, appID, _ string, spec command.Spec, guildID string) (command.Remote, error) {
	defer f.leave()
	if err := f.enter("create"); err != nil {
		return command.Remote{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create "+spec.Key().String())
	f.nextID++
	r := roundTrip(command.Remote{Spec: spec, ID: strconv.Itoa(f.nextID), ApplicationID: appID, GuildID: guildID, Version: "1"})
	f.commands[guildID] = append(f.commands[guildID], r)
	return r, nil
}

func (f *fakeAPI) PatchCommand(_ context.Context, _, _, commandID string, patch map[string]any, guildID string) (command.Remote, error) {
	defer f.leave()
	if err := f.enter("patch"); err != nil {
		return command.Remote{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "patch "+commandID)
	f.patches = append(f.patches, patch)
	for i, r := range f.commands[guildID] {
		if r.ID != commandID {
			continue
		}
		var doc map[string]any
		raw, _ := json.Marshal(r)
		_ = json.Unmarshal(raw, &doc)
		for k, v := range patch {
			doc[k] = v
		}
		raw, _ = json.Marshal(doc)
		var updated command.Remote
		if err := json.Unmarshal(raw, &updated); err != nil {
			return command.Remote{}, err
		}
		updated.Version = r.Version + "+"
		updated = roundTrip(updated)
		f.commands[guildID][i] = updated
		return updated, nil
	}
	return command.Remote{}, fmt.Errorf("unknown command %s", commandID)
}

func (f *fakeAPI) DeleteCommand(_ context.Context, _, _, commandID, guildID string) error {
	defer f.leave()
	if err := f.enter("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+commandID)
	list := f.commands[guildID]
	for i, r := range list {
		if r.ID == commandID {
			f.commands[guildID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown command %s", commandID)
}
