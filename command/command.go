// Package command defines the declarative application command model shared by
// the handler registry and the registry sync engine.
package command

import (
	"fmt"
	"strconv"
)

// Type is the application command type.
type Type int

const (
	// ChatInput is a slash command. It is the default when Type is zero.
	ChatInput Type = 1

	// User is a user context-menu command.
	User Type = 2

	// Message is a message context-menu command.
	Message Type = 3

	// PrimaryEntryPoint launches an activity.
	PrimaryEntryPoint Type = 4
)

// OrDefault returns t, or ChatInput when t is unset.
func (t Type) OrDefault() Type {
	if t == 0 {
		return ChatInput
	}
	return t
}

// Known reports whether t (after defaulting) is a recognised command type.
func (t Type) Known() bool {
	switch t.OrDefault() {
	case ChatInput, User, Message, PrimaryEntryPoint:
		return true
	default:
		return false
	}
}

// ContextMenu reports whether t is a user or message context-menu type.
func (t Type) ContextMenu() bool {
	d := t.OrDefault()
	return d == User || d == Message
}

// RequiresDescription reports whether commands of type t must carry a description.
func (t Type) RequiresDescription() bool {
	d := t.OrDefault()
	return d == ChatInput || d == PrimaryEntryPoint
}

func (t Type) String() string {
	switch t.OrDefault() {
	case ChatInput:
		return "chat_input"
	case User:
		return "user"
	case Message:
		return "message"
	case PrimaryEntryPoint:
		return "primary_entry_point"
	default:
		return "type_" + strconv.Itoa(int(t))
	}
}

// InstallationContext is where an application can be installed (integration type).
type InstallationContext int

const (
	// GuildInstall makes the command available in guilds the app is installed to.
	GuildInstall InstallationContext = 0

	// UserInstall makes the command available to users who installed the app.
	UserInstall InstallationContext = 1
)

// InteractionContext is a surface a command can be invoked from.
type InteractionContext int

const (
	// ContextGuild is a guild channel.
	ContextGuild InteractionContext = 0

	// ContextBotDM is a DM with the app's bot user.
	ContextBotDM InteractionContext = 1

	// ContextPrivateChannel is a group DM or a DM that is not with the bot.
	ContextPrivateChannel InteractionContext = 2
)

// Key identifies a command within a scope. Two specs with the same name but
// different types are distinct commands.
type Key struct {
	Name string
	Type Type
}

// KeyOf builds a key, defaulting the type to ChatInput.
func KeyOf(name string, t Type) Key {
	return Key{Name: name, Type: t.OrDefault()}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Name, int(k.Type.OrDefault()))
}

// Spec is a caller-authored command definition.
type Spec struct {
	// Name is the invocation name.
	Name string `json:"name" yaml:"name"`

	// Type defaults to ChatInput when zero.
	Type Type `json:"type,omitempty" yaml:"type,omitempty"`

	// Description is required for chat-input and primary-entry-point commands
	// and must be empty for context-menu commands.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Options are the ordered parameters of a chat-input command.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	// IntegrationTypes are the installation contexts the command is available in.
	// Nil means "platform default" and is not compared during sync.
	IntegrationTypes []InstallationContext `json:"integration_types,omitempty" yaml:"integration_types,omitempty"`

	// Contexts are the interaction contexts the command can be used from.
	// Nil means "platform default" and is not compared during sync.
	Contexts []InteractionContext `json:"contexts,omitempty" yaml:"contexts,omitempty"`

	// DefaultMemberPermissions is a permission bit set serialised as a string.
	DefaultMemberPermissions *string `json:"default_member_permissions,omitempty" yaml:"default_member_permissions,omitempty"`

	// NSFW marks the command as age-restricted.
	NSFW bool `json:"nsfw,omitempty" yaml:"nsfw,omitempty"`
}

// Key returns the identity key of the spec.
func (s Spec) Key() Key {
	return KeyOf(s.Name, s.Type)
}

// Remote is a command as registered on the platform.
type Remote struct {
	Spec

	// ID is the server-assigned snowflake.
	ID string `json:"id"`

	// ApplicationID is the owning application.
	ApplicationID string `json:"application_id,omitempty"`

	// GuildID is set for guild-scoped commands.
	GuildID string `json:"guild_id,omitempty"`

	// Version is bumped by the platform on every update.
	Version string `json:"version,omitempty"`
}
