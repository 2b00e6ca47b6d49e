package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xraph/herald/handler"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/interaction"
)

// State is a step of the per-call dispatch state machine.
type State int

// Dispatch states, in the order a call moves through them.
const (
	StateReceived State = iota
	StateVerified
	StateParsed
	StateRouted
	StateCompleted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateVerified:
		return "verified"
	case StateParsed:
		return "parsed"
	case StateRouted:
		return "routed"
	case StateCompleted:
		return "completed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a call.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRejected
}

// Outcome is the result of one Dispatch call.
type Outcome struct {
	// DispatchID identifies the call in logs and traces.
	DispatchID id.ID

	// State is StateCompleted or StateRejected.
	State State

	// Status is the HTTP status to send.
	Status int

	// Response is the JSON body to send, nil for an empty body.
	Response *interaction.Response

	// Err is set for rejections and handler failures.
	Err error

	// Interaction is the parsed payload, nil if parsing was not reached.
	Interaction *interaction.Interaction

	kind interaction.Kind
	exec Executor
	rt   *callRuntime
}

// Body encodes Response, or returns nil when there is no body.
func (o *Outcome) Body() ([]byte, error) {
	if o.Response == nil {
		return nil, nil
	}
	return json.Marshal(o.Response)
}

// Pending returns the number of deferred tasks waiting for Release.
func (o *Outcome) Pending() int {
	if o.rt == nil {
		return 0
	}
	return o.rt.pending()
}

// Release hands deferred tasks to the executor. Call it after the response
// has been written to the client; calling it again is a no-op. Tasks a
// running task defers later are spawned directly.
func (o *Outcome) Release() {
	if o.rt != nil {
		o.rt.release(o.exec)
	}
}

func (o *Outcome) reject(status int, err error) *Outcome {
	o.State = StateRejected
	o.Status = status
	o.Err = err
	return o
}

func (o *Outcome) complete(status int, resp *interaction.Response) *Outcome {
	o.State = StateCompleted
	o.Status = status
	o.Response = resp
	return o
}

func (o *Outcome) interactionID() string {
	if o.Interaction == nil {
		return ""
	}
	return o.Interaction.ID
}

// callRuntime is the per-call handler.Runtime. Deferred tasks are held until
// release; tasks of a failed handler are discarded.
type callRuntime struct {
	d *Dispatcher

	mu        sync.Mutex
	tasks     []handler.Task
	exec      Executor
	released  bool
	discarded bool
}

func (rt *callRuntime) Defer(task handler.Task) {
	rt.mu.Lock()
	if rt.discarded {
		rt.mu.Unlock()
		return
	}
	if rt.released {
		exec := rt.exec
		rt.mu.Unlock()
		exec.Spawn(task)
		return
	}
	rt.tasks = append(rt.tasks, task)
	rt.mu.Unlock()
}

func (rt *callRuntime) pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.tasks)
}

func (rt *callRuntime) release(exec Executor) {
	rt.mu.Lock()
	if rt.released || rt.discarded {
		rt.mu.Unlock()
		return
	}
	rt.released = true
	rt.exec = exec
	tasks := rt.tasks
	rt.tasks = nil
	rt.mu.Unlock()

	for _, task := range tasks {
		exec.Spawn(task)
	}
}

func (rt *callRuntime) discard() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.discarded = true
	rt.tasks = nil
}

func (rt *callRuntime) EditOriginal(ctx context.Context, appID, token string, msg *interaction.Message) (*interaction.Message, error) {
	if rt.d.cfg.Webhooks == nil {
		return nil, ErrNoWebhookClient
	}
	return rt.d.cfg.Webhooks.EditOriginalResponse(ctx, appID, token, msg)
}

func (rt *callRuntime) Followup(ctx context.Context, appID, token string, msg *interaction.Message) (*interaction.Message, error) {
	if rt.d.cfg.Webhooks == nil {
		return nil, ErrNoWebhookClient
	}
	return rt.d.cfg.Webhooks.SendFollowupMessage(ctx, appID, token, msg)
}
