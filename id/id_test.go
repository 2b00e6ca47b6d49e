package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/herald/id"
)

func TestNewPrefixes(t *testing.T) {
	d := id.NewDispatchID()
	if d.Prefix() != id.PrefixDispatch || !strings.HasPrefix(d.String(), "dsp_") {
		t.Fatalf("unexpected dispatch id %q", d)
	}
	s := id.NewSyncID()
	if s.Prefix() != id.PrefixSync || !strings.HasPrefix(s.String(), "sync_") {
		t.Fatalf("unexpected sync id %q", s)
	}
}

func TestParse(t *testing.T) {
	orig := id.NewLockID()
	got, err := id.Parse(orig.String())
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != orig.String() || got.Prefix() != id.PrefixLock {
		t.Fatalf("got %q, want %q", got, orig)
	}

	for _, bad := range []string{"", "sync_", "not an id"} {
		if _, err := id.Parse(bad); err == nil {
			t.Errorf("Parse(%q): expected error", bad)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := id.NewSyncID()
	raw, err := json.Marshal(struct {
		RunID id.ID `json:"run_id"`
	}{orig})
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		RunID id.ID `json:"run_id"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID.String() != orig.String() {
		t.Fatalf("got %q, want %q", got.RunID, orig)
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() || id.Nil.String() != "" {
		t.Fatal("Nil should be empty")
	}
}
