package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/registry"
	"github.com/xraph/herald/rest"
	"github.com/xraph/herald/store/memory"
)

var creds = registry.Credentials{ClientID: "app", ClientSecret: "secret"}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func newSyncer(api *fakeAPI, opts ...registry.Option) (*registry.Syncer, *sleepRecorder) {
	rec := &sleepRecorder{}
	base := []registry.Option{
		registry.WithSleep(rec.sleep),
		registry.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return registry.New(api, append(base, opts...)...), rec
}

func TestSyncCreatesMissingCommand(t *testing.T) {
	api := newFakeAPI()
	s, _ := newSyncer(api)

	got, err := s.Sync(context.Background(), creds, []command.Spec{
		{Name: "ping", Type: command.ChatInput, Description: "Ping"},
	}, "")
	if err != nil {
		t.Fatal(err)
	}

	muts := api.mutations()
	if len(muts) != 1 || muts[0] != "create ping:1" {
		t.Fatalf("expected exactly one create, got %v", muts)
	}
	if len(got) != 1 || got[0].ID == "" || got[0].Name != "ping" {
		t.Fatalf("expected one record with a server id, got %+v", got)
	}
}

func TestSyncDeletesStaleCommand(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "1", Spec: command.Spec{Name: "old", Description: "Old"}})
	s, _ := newSyncer(api)

	got, err := s.Sync(context.Background(), creds, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	muts := api.mutations()
	if len(muts) != 1 || muts[0] != "delete 1" {
		t.Fatalf("expected exactly one delete of id 1, got %v", muts)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	api := newFakeAPI(
		command.Remote{ID: "1", Spec: command.Spec{Name: "old", Description: "Old"}},
		command.Remote{ID: "2", Spec: command.Spec{Name: "echo", Description: "Say it"}},
	)
	s, _ := newSyncer(api)
	desired := []command.Spec{
		{Name: "echo", Description: "Echo text", Options: []command.Option{
			{Type: command.OptionString, Name: "text", Description: "Text", Required: true},
			{Type: command.OptionInteger, Name: "times", Description: "Repeat", Choices: []command.Choice{
				{Name: "once", Value: 1}, {Name: "twice", Value: 2},
			}},
		}},
		{Name: "Profile", Type: command.User},
		{Name: "ping", Description: "Ping", Contexts: []command.InteractionContext{command.ContextGuild, command.ContextBotDM}},
	}

	first, err := s.Sync(context.Background(), creds, desired, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(api.mutations()); n != 4 {
		t.Fatalf("first run: expected 4 mutating calls, got %d: %v", n, api.mutations())
	}

	before := len(api.mutations())
	second, err := s.Sync(context.Background(), creds, desired, "")
	if err != nil {
		t.Fatal(err)
	}
	if after := len(api.mutations()); after != before {
		t.Fatalf("second run issued %d mutating calls: %v", after-before, api.mutations()[before:])
	}
	if len(second) != len(first) {
		t.Fatalf("expected %d records, got %d", len(first), len(second))
	}
}

func TestSyncRequiredDefaultIsNotAChange(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "1", Spec: command.Spec{
		Name:        "echo",
		Description: "Echo",
		Options:     []command.Option{{Name: "x", Type: command.OptionString}},
	}})
	s, _ := newSyncer(api)

	_, err := s.Sync(context.Background(), creds, []command.Spec{{
		Name:        "echo",
		Description: "Echo",
		Options:     []command.Option{{Name: "x", Type: command.OptionString, Required: false, Choices: []command.Choice{}}},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if muts := api.mutations(); len(muts) != 0 {
		t.Fatalf("expected no mutating calls, got %v", muts)
	}
}

func TestSyncSameNameDifferentTypeIsDistinct(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "1", Spec: command.Spec{Name: "foo", Type: command.ChatInput, Description: "Foo"}})
	s, _ := newSyncer(api)

	got, err := s.Sync(context.Background(), creds, []command.Spec{{Name: "foo", Type: command.User}}, "")
	if err != nil {
		t.Fatal(err)
	}

	muts := api.mutations()
	if len(muts) != 2 || muts[0] != "delete 1" || muts[1] != "create foo:2" {
		t.Fatalf("expected delete then create, got %v", muts)
	}
	if len(api.patches) != 0 {
		t.Fatalf("expected no patches, got %v", api.patches)
	}
	if len(got) != 1 || got[0].Type != command.User {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestSyncPatchesOnlyChangedFields(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "7", Version: "1", Spec: command.Spec{
		Name:        "ping",
		Description: "Ping",
		Options:     []command.Option{{Name: "loud", Type: command.OptionBoolean, Description: "Shout"}},
		Contexts:    []command.InteractionContext{0, 1, 2},
	}})
	s, _ := newSyncer(api)

	got, err := s.Sync(context.Background(), creds, []command.Spec{{
		Name:        "ping",
		Description: "Ping the bot",
		Options:     []command.Option{{Name: "loud", Type: command.OptionBoolean, Description: "Shout"}},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(api.patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(api.patches))
	}
	patch := api.patches[0]
	if len(patch) != 1 || patch["description"] != "Ping the bot" {
		t.Fatalf("expected description-only patch, got %v", patch)
	}
	if got[0].ID != "7" || got[0].Description != "Ping the bot" {
		t.Fatalf("unexpected patched record %+v", got[0])
	}
}

func TestSyncOrderDeletePatchCreate(t *testing.T) {
	api := newFakeAPI(
		command.Remote{ID: "1", Spec: command.Spec{Name: "keep", Description: "old"}},
		command.Remote{ID: "2", Spec: command.Spec{Name: "gone", Description: "x"}},
	)
	s, _ := newSyncer(api)

	_, err := s.Sync(context.Background(), creds, []command.Spec{
		{Name: "new", Description: "New"},
		{Name: "keep", Description: "new"},
	}, "")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"delete 2", "patch 1", "create new:1"}
	got := api.mutations()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if api.calls[0] != "token" || api.calls[1] != "list " {
		t.Fatalf("expected token exchange then list first, got %v", api.calls[:2])
	}
}

func TestSyncPacesEveryBatch(t *testing.T) {
	api := newFakeAPI()
	s, rec := newSyncer(api, registry.WithConfig(registry.Config{BatchSize: 5, Window: 20 * time.Second}))

	var desired []command.Spec
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		desired = append(desired, command.Spec{Name: n, Description: n})
	}

	if _, err := s.Sync(context.Background(), creds, desired, ""); err != nil {
		t.Fatal(err)
	}
	if len(api.mutations()) != 12 {
		t.Fatalf("expected 12 creates, got %d", len(api.mutations()))
	}
	if len(rec.slept) != 2 {
		t.Fatalf("expected 2 pauses for 12 calls in batches of 5, got %d", len(rec.slept))
	}
	if rec.slept[0] != 20*time.Second {
		t.Fatalf("expected a 20s window, got %s", rec.slept[0])
	}
	if api.overlap {
		t.Fatal("mutating calls overlapped")
	}
}

func TestSyncPausesBetweenPhases(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "1", Spec: command.Spec{Name: "old", Description: "Old"}})
	s, rec := newSyncer(api)

	if _, err := s.Sync(context.Background(), creds, []command.Spec{{Name: "new", Description: "New"}}, ""); err != nil {
		t.Fatal(err)
	}
	if len(rec.slept) != 1 {
		t.Fatalf("expected one pause between the delete and create phases, got %d", len(rec.slept))
	}
}

func TestSyncAbortsOnFirstFailure(t *testing.T) {
	api := newFakeAPI()
	api.failOn, api.failAt = "create", 2
	s, _ := newSyncer(api)

	got, err := s.Sync(context.Background(), creds, []command.Spec{
		{Name: "a", Description: "a"},
		{Name: "b", Description: "b"},
		{Name: "c", Description: "c"},
	}, "")
	if got != nil {
		t.Fatalf("expected no result, got %+v", got)
	}

	var apiErr *rest.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected the transport error, got %v", err)
	}
	var phaseErr *registry.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != registry.PhaseCreate {
		t.Fatalf("expected a create-phase error, got %v", err)
	}

	// The first create is not rolled back and the third is never attempted.
	muts := api.mutations()
	if len(muts) != 1 || muts[0] != "create a:1" {
		t.Fatalf("unexpected calls %v", muts)
	}
}

func TestSyncTokenFailure(t *testing.T) {
	api := newFakeAPI()
	s, _ := newSyncer(api)

	_, err := s.Sync(context.Background(), registry.Credentials{ClientID: "app", ClientSecret: "bad"}, nil, "")
	var apiErr *rest.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestSyncRejectsInvalidDesired(t *testing.T) {
	tests := []struct {
		name    string
		desired []command.Spec
		want    error
	}{
		{"missing description", []command.Spec{{Name: "ping"}}, registry.ErrInvalidSpec},
		{"context menu options", []command.Spec{{Name: "P", Type: command.User, Options: []command.Option{{Name: "x"}}}}, registry.ErrInvalidSpec},
		{"duplicate key", []command.Spec{{Name: "a", Description: "a"}, {Name: "a", Type: command.ChatInput, Description: "b"}}, registry.ErrDuplicateSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			s, _ := newSyncer(api)
			if _, err := s.Sync(context.Background(), creds, tt.desired, ""); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(api.calls) != 0 {
				t.Fatalf("expected no remote calls, got %v", api.calls)
			}
		})
	}
}

func TestSyncGuildScope(t *testing.T) {
	api := newFakeAPI(
		command.Remote{ID: "1", GuildID: "g1", Spec: command.Spec{Name: "guildonly", Description: "x"}},
		command.Remote{ID: "2", Spec: command.Spec{Name: "global", Description: "x"}},
	)
	s, _ := newSyncer(api)

	if _, err := s.Sync(context.Background(), creds, nil, "g1"); err != nil {
		t.Fatal(err)
	}
	muts := api.mutations()
	if len(muts) != 1 || muts[0] != "delete 1" {
		t.Fatalf("expected only the guild command to be deleted, got %v", muts)
	}
	if len(api.commands[""]) != 1 {
		t.Fatal("global scope must be untouched")
	}
}

func TestPlanDoesNotMutate(t *testing.T) {
	api := newFakeAPI(command.Remote{ID: "1", Spec: command.Spec{Name: "old", Description: "Old"}})
	s, _ := newSyncer(api)

	plan, err := s.Plan(context.Background(), creds, []command.Spec{{Name: "new", Description: "New"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Deletes) != 1 || len(plan.Creates) != 1 || plan.Calls() != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if muts := api.mutations(); len(muts) != 0 {
		t.Fatalf("plan issued mutating calls %v", muts)
	}
}

func TestSyncRecordsSnapshotUnderLock(t *testing.T) {
	api := newFakeAPI()
	st := memory.New()
	s, _ := newSyncer(api, registry.WithLocker(st), registry.WithRecorder(st))
	ctx := context.Background()

	if _, err := s.Sync(ctx, creds, []command.Spec{{Name: "ping", Description: "Ping"}}, ""); err != nil {
		t.Fatal(err)
	}

	snap, err := st.Latest(ctx, registry.Scope("app", ""))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Created != 1 || len(snap.Commands) != 1 || snap.RunID.IsNil() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// The lock was released, so a second run can proceed.
	if _, err := s.Sync(ctx, creds, []command.Spec{{Name: "ping", Description: "Ping"}}, ""); err != nil {
		t.Fatal(err)
	}
}

func TestSyncFailsWhenScopeLocked(t *testing.T) {
	api := newFakeAPI()
	st := memory.New()
	ctx := context.Background()

	lease, err := st.Acquire(ctx, registry.Scope("app", ""), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release(ctx)

	s, _ := newSyncer(api, registry.WithLocker(st))
	if _, err := s.Sync(ctx, creds, nil, ""); !errors.Is(err, registry.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected no remote calls, got %v", api.calls)
	}
}

func TestSyncExtendsLockAcrossPauses(t *testing.T) {
	api := newFakeAPI()
	st := memory.New()
	ctx := context.Background()
	scope := registry.Scope("app", "")

	// Each pause outlasts LockTTL, so an unextended lock would expire mid-run.
	var stolen []error
	sleep := func(ctx context.Context, d time.Duration) error {
		time.Sleep(d)
		if lease, err := st.Acquire(ctx, scope, time.Minute); err == nil {
			stolen = append(stolen, nil)
			_ = lease.Release(ctx)
		} else if !errors.Is(err, registry.ErrLocked) {
			stolen = append(stolen, err)
		}
		return ctx.Err()
	}

	s, _ := newSyncer(api,
		registry.WithLocker(st),
		registry.WithSleep(sleep),
		registry.WithConfig(registry.Config{BatchSize: 1, Window: 40 * time.Millisecond, LockTTL: 30 * time.Millisecond}),
	)
	desired := []command.Spec{
		{Name: "a", Description: "A"},
		{Name: "b", Description: "B"},
		{Name: "c", Description: "C"},
		{Name: "d", Description: "D"},
	}
	if _, err := s.Sync(ctx, creds, desired, ""); err != nil {
		t.Fatal(err)
	}
	if len(stolen) != 0 {
		t.Fatalf("scope lock was free while the sync was running: %v", stolen)
	}

	lease, err := st.Acquire(ctx, scope, time.Minute)
	if err != nil {
		t.Fatalf("expected the lock to be released after the run, got %v", err)
	}
	_ = lease.Release(ctx)
}

type lostLocker struct{}

func (lostLocker) Acquire(context.Context, string, time.Duration) (registry.Lease, error) {
	return lostLease{}, nil
}

type lostLease struct{}

func (lostLease) Extend(context.Context, time.Duration) error { return registry.ErrLockLost }
func (lostLease) Release(context.Context) error                { return nil }

func TestSyncAbortsWhenLockLost(t *testing.T) {
	api := newFakeAPI()
	s, _ := newSyncer(api, registry.WithLocker(lostLocker{}))

	_, err := s.Sync(context.Background(), creds, []command.Spec{{Name: "ping", Description: "Ping"}}, "")
	if !errors.Is(err, registry.ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if muts := api.mutations(); len(muts) != 0 {
		t.Fatalf("expected no mutating calls, got %v", muts)
	}
}
