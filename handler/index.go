package handler

import (
	"errors"
	"log/slog"

	"github.com/xraph/herald/command"
)

// IndexOption configures index construction.
type IndexOption func(*indexOptions)

type indexOptions struct {
	logger *slog.Logger
}

// WithWarnings logs one warning per rejected entry.
func WithWarnings(logger *slog.Logger) IndexOption {
	return func(o *indexOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// CommandIndex is an immutable lookup of command handlers by key.
type CommandIndex struct {
	entries map[command.Key]Command
	keys    []command.Key
}

// BuildCommandIndex validates entries and indexes the accepted ones. Rejected
// entries are returned in input order; a rejection never stops indexing.
func BuildCommandIndex(entries []Command, opts ...IndexOption) (*CommandIndex, []*RejectionError) {
	o := applyIndexOptions(opts)
	idx := &CommandIndex{entries: make(map[command.Key]Command, len(entries))}
	var rejected []*RejectionError

	for i, c := range entries {
		if err := ValidateCommand(c); err != nil {
			rejected = append(rejected, o.reject(i, err, "command"))
			continue
		}
		key := c.Key()
		if _, dup := idx.entries[key]; dup {
			rejected = append(rejected, o.reject(i, &RejectionError{Name: c.Name, Field: "key", Reason: ReasonDuplicate}, "command"))
			continue
		}
		idx.entries[key] = c
		idx.keys = append(idx.keys, key)
	}

	return idx, rejected
}

// Lookup returns the command registered under key.
func (idx *CommandIndex) Lookup(key command.Key) (Command, bool) {
	if idx == nil {
		return Command{}, false
	}
	c, ok := idx.entries[command.KeyOf(key.Name, key.Type)]
	return c, ok
}

// Len returns the number of indexed commands.
func (idx *CommandIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.keys)
}

// Keys returns the indexed keys in registration order.
func (idx *CommandIndex) Keys() []command.Key {
	if idx == nil {
		return nil
	}
	return append([]command.Key(nil), idx.keys...)
}

// Specs returns the indexed command definitions in registration order, ready
// to be passed to the registry sync engine.
func (idx *CommandIndex) Specs() []command.Spec {
	if idx == nil {
		return nil
	}
	specs := make([]command.Spec, 0, len(idx.keys))
	for _, k := range idx.keys {
		specs = append(specs, idx.entries[k].Spec)
	}
	return specs
}

// ComponentIndex is an immutable lookup of component handlers by custom id.
type ComponentIndex struct {
	entries map[string]Component
	names   []string
}

// BuildComponentIndex validates entries and indexes the accepted ones.
func BuildComponentIndex(entries []Component, opts ...IndexOption) (*ComponentIndex, []*RejectionError) {
	o := applyIndexOptions(opts)
	idx := &ComponentIndex{entries: make(map[string]Component, len(entries))}
	var rejected []*RejectionError

	for i, c := range entries {
		if err := ValidateComponent(c); err != nil {
			rejected = append(rejected, o.reject(i, err, "component"))
			continue
		}
		if _, dup := idx.entries[c.Name]; dup {
			rejected = append(rejected, o.reject(i, &RejectionError{Name: c.Name, Field: "name", Reason: ReasonDuplicate}, "component"))
			continue
		}
		idx.entries[c.Name] = c
		idx.names = append(idx.names, c.Name)
	}

	return idx, rejected
}

// Lookup returns the component registered under customID.
func (idx *ComponentIndex) Lookup(customID string) (Component, bool) {
	if idx == nil {
		return Component{}, false
	}
	c, ok := idx.entries[customID]
	return c, ok
}

// Len returns the number of indexed components.
func (idx *ComponentIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.names)
}

// Names returns the indexed custom ids in registration order.
func (idx *ComponentIndex) Names() []string {
	if idx == nil {
		return nil
	}
	return append([]string(nil), idx.names...)
}

func applyIndexOptions(opts []IndexOption) indexOptions {
	var o indexOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o indexOptions) reject(i int, err error, kind string) *RejectionError {
	var re *RejectionError
	if !errors.As(err, &re) {
		re = &RejectionError{Reason: err.Error()}
	}
	re.Index = i
	if o.logger != nil {
		o.logger.Warn("handler rejected",
			"kind", kind,
			"index", re.Index,
			"name", re.Name,
			"field", re.Field,
			"reason", re.Reason,
		)
	}
	return re
}
