package registry

import (
	"fmt"

	"github.com/xraph/herald/command"
)

// Change pairs a remote command with the desired spec that matched it.
type Change struct {
	Remote  command.Remote
	Desired command.Spec
	Diff    Diff
}

// Plan is the set of operations a sync run would perform.
type Plan struct {
	// Deletes are remote commands with no desired counterpart.
	Deletes []command.Remote

	// Changes are matched pairs, in desired order. Pairs with an empty Diff
	// need no call.
	Changes []Change

	// Creates are desired specs with no remote counterpart, in desired order.
	Creates []command.Spec
}

// Patches returns the changes that need a PATCH.
func (p *Plan) Patches() []Change {
	var out []Change
	for _, c := range p.Changes {
		if !c.Diff.Empty() {
			out = append(out, c)
		}
	}
	return out
}

// Unchanged returns the matched pairs that need no call.
func (p *Plan) Unchanged() []Change {
	var out []Change
	for _, c := range p.Changes {
		if c.Diff.Empty() {
			out = append(out, c)
		}
	}
	return out
}

// Calls returns the number of mutating calls the plan issues.
func (p *Plan) Calls() int {
	return len(p.Deletes) + len(p.Patches()) + len(p.Creates)
}

// Empty reports whether the plan issues no mutating calls.
func (p *Plan) Empty() bool {
	return p.Calls() == 0
}

// Validate checks every desired spec and rejects duplicate (name, type) keys.
func Validate(desired []command.Spec) error {
	seen := make(map[command.Key]int, len(desired))
	for i, spec := range desired {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrInvalidSpec, i, err)
		}
		key := spec.Key()
		if j, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s (entries %d and %d)", ErrDuplicateSpec, key, j, i)
		}
		seen[key] = i
	}
	return nil
}

// Compute matches remote against desired by (name, type) and diffs each pair.
// Remote commands sharing a key with an earlier remote are scheduled for
// deletion.
func Compute(remote []command.Remote, desired []command.Spec) (*Plan, error) {
	if err := Validate(desired); err != nil {
		return nil, err
	}

	wanted := make(map[command.Key]bool, len(desired))
	for _, spec := range desired {
		wanted[spec.Key()] = true
	}

	plan := &Plan{}
	byKey := make(map[command.Key]command.Remote, len(remote))
	for _, r := range remote {
		key := r.Key()
		if _, dup := byKey[key]; dup || !wanted[key] {
			plan.Deletes = append(plan.Deletes, r)
			continue
		}
		byKey[key] = r
	}

	for _, spec := range desired {
		r, ok := byKey[spec.Key()]
		if !ok {
			plan.Creates = append(plan.Creates, spec)
			continue
		}
		plan.Changes = append(plan.Changes, Change{
			Remote:  r,
			Desired: spec,
			Diff:    Compare(r.Spec, spec),
		})
	}
	return plan, nil
}
