package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/herald/interaction"
)

// ErrAlreadyResponded is returned by Respond after the first call.
var ErrAlreadyResponded = errors.New("handler: interaction already responded to")

// Task is a unit of deferred work. Its context is detached from the inbound
// request and may be cancelled when the host shuts down.
type Task func(ctx context.Context)

// Runtime is what the dispatcher provides to handler contexts.
type Runtime interface {
	// Defer schedules task to run after the synchronous response has been sent.
	Defer(task Task)

	// EditOriginal edits the original interaction response.
	EditOriginal(ctx context.Context, applicationID, token string, msg *interaction.Message) (*interaction.Message, error)

	// Followup sends an additional message for the interaction.
	Followup(ctx context.Context, applicationID, token string, msg *interaction.Message) (*interaction.Message, error)
}

// Context is shared by command and component contexts.
type Context struct {
	// Interaction is the parsed inbound interaction.
	Interaction *interaction.Interaction

	rt Runtime

	mu        sync.Mutex
	responded bool
	response  *interaction.Response
}

// Respond records the synchronous response. It may be called at most once;
// the handler usually returns its result directly:
//
//	return c.Respond(interaction.Reply("pong"))
func (c *Context) Respond(resp *interaction.Response) (*interaction.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.responded {
		return nil, ErrAlreadyResponded
	}
	c.responded = true
	c.response = resp
	return resp, nil
}

// Response returns the response recorded by Respond, if any.
func (c *Context) Response() (*interaction.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response, c.responded
}

// Defer schedules task to run in the background once the synchronous response
// has been delivered. Completion is best-effort.
func (c *Context) Defer(task Task) {
	if task == nil {
		return
	}
	c.rt.Defer(task)
}

// EditOriginal edits the message created by the synchronous response.
func (c *Context) EditOriginal(ctx context.Context, msg *interaction.Message) (*interaction.Message, error) {
	return c.rt.EditOriginal(ctx, c.Interaction.ApplicationID, c.Interaction.Token, msg)
}

// Followup sends an additional message for this interaction.
func (c *Context) Followup(ctx context.Context, msg *interaction.Message) (*interaction.Message, error) {
	return c.rt.Followup(ctx, c.Interaction.ApplicationID, c.Interaction.Token, msg)
}

// CommandContext is passed to command executors.
type CommandContext struct {
	*Context

	// Data is the decoded command payload.
	Data interaction.ApplicationCommandData

	// Commands is a read-only view of every registered command.
	Commands *CommandIndex
}

// ComponentContext is passed to component executors.
type ComponentContext struct {
	*Context

	// Data is the decoded component payload.
	Data interaction.MessageComponentData
}

// NewCommandContext builds the context for a command invocation.
func NewCommandContext(in *interaction.Interaction, data interaction.ApplicationCommandData, commands *CommandIndex, rt Runtime) *CommandContext {
	return &CommandContext{
		Context:  &Context{Interaction: in, rt: rt},
		Data:     data,
		Commands: commands,
	}
}

// NewComponentContext builds the context for a component interaction.
func NewComponentContext(in *interaction.Interaction, data interaction.MessageComponentData, rt Runtime) *ComponentContext {
	return &ComponentContext{
		Context: &Context{Interaction: in, rt: rt},
		Data:    data,
	}
}
