package interaction

// ResponseType is the callback type of an interaction response.
type ResponseType int

// Response types.
const (
	ResponsePong                             ResponseType = 1
	ResponseChannelMessageWithSource         ResponseType = 4
	ResponseDeferredChannelMessageWithSource ResponseType = 5
	ResponseDeferredUpdateMessage            ResponseType = 6
	ResponseUpdateMessage                    ResponseType = 7
)

// FlagEphemeral makes a message visible only to the invoking user.
const FlagEphemeral = 1 << 6

// Response is the synchronous reply to an interaction.
type Response struct {
	Type ResponseType `json:"type"`
	Data *Message     `json:"data,omitempty"`
}

// Message is the message payload used by responses, original-response edits
// and follow-ups.
type Message struct {
	ID         string           `json:"id,omitempty"`
	ChannelID  string           `json:"channel_id,omitempty"`
	Content    string           `json:"content,omitempty"`
	TTS        bool             `json:"tts,omitempty"`
	Embeds     []map[string]any `json:"embeds,omitempty"`
	Components []map[string]any `json:"components,omitempty"`
	Flags      int              `json:"flags,omitempty"`
}

// Pong is the acknowledgement for a ping.
func Pong() *Response {
	return &Response{Type: ResponsePong}
}

// Reply responds with a message shown in the channel.
func Reply(content string) *Response {
	return &Response{
		Type: ResponseChannelMessageWithSource,
		Data: &Message{Content: content},
	}
}

// EphemeralReply responds with a message only the invoker can see.
func EphemeralReply(content string) *Response {
	return &Response{
		Type: ResponseChannelMessageWithSource,
		Data: &Message{Content: content, Flags: FlagEphemeral},
	}
}

// Deferred acknowledges the interaction and shows a loading state. The
// content is delivered later with an original-response edit.
func Deferred(ephemeral bool) *Response {
	r := &Response{Type: ResponseDeferredChannelMessageWithSource}
	if ephemeral {
		r.Data = &Message{Flags: FlagEphemeral}
	}
	return r
}

// DeferredUpdate acknowledges a component interaction without changing the message yet.
func DeferredUpdate() *Response {
	return &Response{Type: ResponseDeferredUpdateMessage}
}

// Update replaces the message a component is attached to.
func Update(msg *Message) *Response {
	return &Response{Type: ResponseUpdateMessage, Data: msg}
}
