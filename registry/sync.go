package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/internal/entity"
	"github.com/xraph/herald/ratelimit"
)

// Plan fetches the remote state and returns what Sync would do, without
// issuing any mutating call.
func (s *Syncer) Plan(ctx context.Context, creds Credentials, desired []command.Spec, guildID string) (*Plan, error) {
	if err := Validate(desired); err != nil {
		return nil, err
	}
	_, remote, err := s.fetch(ctx, creds, guildID)
	if err != nil {
		return nil, err
	}
	return Compute(remote, desired)
}

// Sync reconciles the remote commands of the global scope (guildID == "") or
// of one guild with desired, and returns the reconciled records: matched
// commands in desired order followed by created ones.
//
// The first failing remote call aborts the run with that call's error
// wrapped in a *PhaseError. Calls that already succeeded are not rolled back.
func (s *Syncer) Sync(ctx context.Context, creds Credentials, desired []command.Spec, guildID string) (result []command.Remote, err error) {
	runID := id.NewSyncID()
	start := time.Now()

	ctx, span := s.tracer.StartSyncSpan(ctx, runID.String(), guildID, len(desired))
	calls := 0
	defer func() {
		s.tracer.EndSyncSpan(span, calls, err)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordSyncRun(outcome, time.Since(start).Seconds())
	}()

	if err := Validate(desired); err != nil {
		return nil, err
	}

	scope := Scope(creds.ClientID, guildID)
	var lease Lease
	if s.locker != nil {
		lease, err = s.locker.Acquire(ctx, scope, s.lockTTL())
		if err != nil {
			return nil, fmt.Errorf("registry: lock %s: %w", scope, err)
		}
		defer func() {
			if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.WarnContext(ctx, "sync lock release failed",
					"sync_id", runID.String(),
					"scope", scope,
					"error", rerr,
				)
			}
		}()
	}

	token, remote, err := s.fetch(ctx, creds, guildID)
	if err != nil {
		return nil, err
	}
	plan, err := Compute(remote, desired)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sync planned",
		"sync_id", runID.String(),
		"scope", scope,
		"remote", len(remote),
		"desired", len(desired),
		"deletes", len(plan.Deletes),
		"patches", len(plan.Patches()),
		"creates", len(plan.Creates),
	)

	a := &applier{
		syncer:  s,
		appID:   creds.ClientID,
		token:   token,
		guildID: guildID,
		pacer:   s.newPacer(),
		lease:   lease,
	}
	result, err = a.apply(ctx, plan)
	calls = a.calls
	if err != nil {
		s.logger.ErrorContext(ctx, "sync aborted",
			"sync_id", runID.String(),
			"scope", scope,
			"calls", calls,
			"error", err,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "sync completed",
		"sync_id", runID.String(),
		"scope", scope,
		"calls", calls,
		"commands", len(result),
	)

	if s.recorder != nil {
		snap := &Snapshot{
			Entity:        entity.New(),
			RunID:         runID,
			Scope:         scope,
			ApplicationID: creds.ClientID,
			GuildID:       guildID,
			Commands:      result,
			Deleted:       len(plan.Deletes),
			Patched:       len(plan.Patches()),
			Created:       len(plan.Creates),
			Unchanged:     len(plan.Unchanged()),
		}
		// The remote state is already reconciled; a lost snapshot is only logged.
		if rerr := s.recorder.Record(ctx, snap); rerr != nil {
			s.logger.WarnContext(ctx, "sync snapshot not recorded",
				"sync_id", runID.String(),
				"scope", scope,
				"error", rerr,
			)
		}
	}

	return result, nil
}

func (s *Syncer) fetch(ctx context.Context, creds Credentials, guildID string) (string, []command.Remote, error) {
	token, err := s.transport.ExchangeCredentials(ctx, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return "", nil, &PhaseError{Phase: PhaseFetch, Op: "exchange credentials", Err: err}
	}
	remote, err := s.transport.ListCommands(ctx, creds.ClientID, token, guildID)
	if err != nil {
		return "", nil, &PhaseError{Phase: PhaseFetch, Op: "list commands", Err: err}
	}
	return token, remote, nil
}

func (s *Syncer) newPacer() *ratelimit.Pacer {
	var opts []ratelimit.PacerOption
	if s.sleep != nil {
		opts = append(opts, ratelimit.WithSleep(s.sleep))
	}
	return ratelimit.New(s.config.BatchSize, s.config.Window, opts...)
}

// lockTTL covers LockTTL of work after the longest pause the pacer takes.
func (s *Syncer) lockTTL() time.Duration {
	return s.config.LockTTL + s.config.Window
}

// applier issues the mutating calls of one plan, in phase order.
type applier struct {
	syncer  *Syncer
	appID   string
	token   string
	guildID string
	pacer   *ratelimit.Pacer
	lease   Lease
	calls   int
}

func (a *applier) apply(ctx context.Context, plan *Plan) ([]command.Remote, error) {
	t := a.syncer.transport
	result := make([]command.Remote, 0, len(plan.Changes)+len(plan.Creates))

	for _, r := range plan.Deletes {
		if err := a.wait(ctx, PhaseRemove); err != nil {
			return nil, err
		}
		if err := t.DeleteCommand(ctx, a.appID, a.token, r.ID, a.guildID); err != nil {
			return nil, &PhaseError{Phase: PhaseRemove, Op: "delete", Key: r.Key(), CommandID: r.ID, Err: err}
		}
		a.done("delete")
	}
	a.pacer.EndPhase()

	for _, c := range plan.Changes {
		if c.Diff.Empty() {
			result = append(result, Merge(c.Remote, c.Desired))
			continue
		}
		if err := a.wait(ctx, PhaseReconcile); err != nil {
			return nil, err
		}
		patched, err := t.PatchCommand(ctx, a.appID, a.token, c.Remote.ID, c.Diff.Patch(c.Desired), a.guildID)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseReconcile, Op: "patch", Key: c.Desired.Key(), CommandID: c.Remote.ID, Err: err}
		}
		a.done("patch")
		a.syncer.logger.DebugContext(ctx, "command patched",
			"command", c.Desired.Key().String(),
			"command_id", c.Remote.ID,
			"fields", c.Diff.Fields(),
		)
		result = append(result, patched)
	}
	a.pacer.EndPhase()

	for _, spec := range plan.Creates {
		if err := a.wait(ctx, PhaseCreate); err != nil {
			return nil, err
		}
		created, err := t.CreateCommand(ctx, a.appID, a.token, spec, a.guildID)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseCreate, Op: "create", Key: spec.Key(), Err: err}
		}
		a.done("create")
		result = append(result, created)
	}

	return result, nil
}

func (a *applier) wait(ctx context.Context, phase string) error {
	if a.lease != nil {
		if err := a.lease.Extend(ctx, a.syncer.lockTTL()); err != nil {
			return &PhaseError{Phase: phase, Op: "extend lock", Err: err}
		}
	}
	if err := a.pacer.Wait(ctx); err != nil {
		return &PhaseError{Phase: phase, Op: "pace", Err: err}
	}
	return nil
}

func (a *applier) done(op string) {
	a.calls++
	a.syncer.metrics.RecordSyncCall(op)
}
