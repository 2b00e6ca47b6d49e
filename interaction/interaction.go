// Package interaction defines the wire types of inbound interactions and the
// responses herald sends back.
package interaction

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/herald/command"
)

// Type is the raw interaction type carried in the payload.
type Type int

// Interaction types sent by the platform.
const (
	TypePing                           Type = 1
	TypeApplicationCommand             Type = 2
	TypeMessageComponent               Type = 3
	TypeApplicationCommandAutocomplete Type = 4
	TypeModalSubmit                    Type = 5
)

// Kind is the dispatch-level classification of an interaction.
type Kind int

const (
	// KindUnknown is any interaction type herald does not route.
	KindUnknown Kind = iota

	// KindPing is the endpoint liveness check.
	KindPing

	// KindApplicationCommand is a slash or context-menu command invocation.
	KindApplicationCommand

	// KindMessageComponent is a button or select menu activation.
	KindMessageComponent
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindApplicationCommand:
		return "command"
	case KindMessageComponent:
		return "component"
	default:
		return "unknown"
	}
}

// ErrMalformed is returned by Parse when the payload is not a JSON interaction.
var ErrMalformed = errors.New("interaction: malformed payload")

// Interaction is a single inbound event.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          Type            `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
	Token         string          `json:"token"`
	Version       int             `json:"version"`
	Message       *Message        `json:"message,omitempty"`
	Locale        string          `json:"locale,omitempty"`
	GuildLocale   string          `json:"guild_locale,omitempty"`

	// Raw is the exact payload the interaction was decoded from.
	Raw []byte `json:"-"`
}

// Member is the guild member that triggered an interaction in a guild.
type Member struct {
	User        *User  `json:"user,omitempty"`
	Nick        string `json:"nick,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

// User is a platform user.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

// Parse decodes a verified payload. The returned interaction keeps a copy of
// body in Raw.
func Parse(body []byte) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	in.Raw = append([]byte(nil), body...)
	return &in, nil
}

// Kind classifies the interaction for routing.
func (in *Interaction) Kind() Kind {
	switch in.Type {
	case TypePing:
		return KindPing
	case TypeApplicationCommand:
		return KindApplicationCommand
	case TypeMessageComponent:
		return KindMessageComponent
	default:
		return KindUnknown
	}
}

// Invoker returns the user who triggered the interaction, from the member in
// guilds or the user in DMs.
func (in *Interaction) Invoker() *User {
	if in.Member != nil && in.Member.User != nil {
		return in.Member.User
	}
	return in.User
}

// ApplicationCommandData is the data of an application command interaction.
type ApplicationCommandData struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     command.Type   `json:"type"`
	Options  []OptionValue  `json:"options,omitempty"`
	GuildID  string         `json:"guild_id,omitempty"`
	TargetID string         `json:"target_id,omitempty"`
	Resolved map[string]any `json:"resolved,omitempty"`
}

// Key is the handler lookup key for the command.
func (d ApplicationCommandData) Key() command.Key {
	return command.KeyOf(d.Name, d.Type)
}

// Option returns the top-level option with the given name.
func (d ApplicationCommandData) Option(name string) (OptionValue, bool) {
	for _, o := range d.Options {
		if o.Name == name {
			return o, true
		}
	}
	return OptionValue{}, false
}

// OptionValue is a user-supplied option value.
type OptionValue struct {
	Name    string             `json:"name"`
	Type    command.OptionType `json:"type"`
	Value   json.RawMessage    `json:"value,omitempty"`
	Options []OptionValue      `json:"options,omitempty"`
	Focused bool               `json:"focused,omitempty"`
}

// String decodes the value as a string.
func (o OptionValue) String() (string, error) {
	var s string
	err := json.Unmarshal(o.Value, &s)
	return s, err
}

// Int decodes the value as an integer.
func (o OptionValue) Int() (int64, error) {
	var n int64
	err := json.Unmarshal(o.Value, &n)
	return n, err
}

// Float decodes the value as a number.
func (o OptionValue) Float() (float64, error) {
	var f float64
	err := json.Unmarshal(o.Value, &f)
	return f, err
}

// Bool decodes the value as a boolean.
func (o OptionValue) Bool() (bool, error) {
	var b bool
	err := json.Unmarshal(o.Value, &b)
	return b, err
}

// MessageComponentData is the data of a component interaction.
type MessageComponentData struct {
	CustomID      string   `json:"custom_id"`
	ComponentType int      `json:"component_type"`
	Values        []string `json:"values,omitempty"`
}

// CommandData decodes Data as application command data.
func (in *Interaction) CommandData() (ApplicationCommandData, error) {
	var d ApplicationCommandData
	if len(in.Data) == 0 {
		return d, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(in.Data, &d); err != nil {
		return d, fmt.Errorf("%w: command data: %w", ErrMalformed, err)
	}
	return d, nil
}

// ComponentData decodes Data as message component data.
func (in *Interaction) ComponentData() (MessageComponentData, error) {
	var d MessageComponentData
	if len(in.Data) == 0 {
		return d, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(in.Data, &d); err != nil {
		return d, fmt.Errorf("%w: component data: %w", ErrMalformed, err)
	}
	return d, nil
}
