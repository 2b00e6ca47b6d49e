// Package handler validates and indexes the command and component handlers an
// application supplies, and defines the context handlers run with.
package handler

import (
	"context"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/interaction"
)

// CommandFunc runs an application command. It returns the synchronous
// response, either directly or via c.Respond.
type CommandFunc func(ctx context.Context, c *CommandContext) (*interaction.Response, error)

// ComponentFunc runs a message component interaction.
type ComponentFunc func(ctx context.Context, c *ComponentContext) (*interaction.Response, error)

// Command binds a command definition to its executor.
type Command struct {
	command.Spec

	// Execute is invoked for every interaction matching the spec's key.
	Execute CommandFunc
}

// Component binds a component custom id to its executor.
type Component struct {
	// Name is the custom_id the component was created with.
	Name string

	// Execute is invoked for every interaction carrying Name as its custom_id.
	Execute ComponentFunc
}
