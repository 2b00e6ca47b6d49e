// Package manifest loads the desired command list from a YAML or JSON file.
//
// A manifest looks like:
//
//	guild_id: "123456789012345678" # optional, empty syncs global commands
//	commands:
//	  - name: ping
//	    description: Replies with pong
//	  - name: Report
//	    type: 3
//
// The document is checked against an embedded JSON Schema before it is
// decoded, then the decoded specs go through the same validation the sync
// engine applies.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/registry"
)

// ErrInvalidManifest is returned when a manifest is not well-formed or fails
// schema validation.
var ErrInvalidManifest = errors.New("manifest: invalid manifest")

// Manifest is a decoded command manifest.
type Manifest struct {
	// GuildID scopes the commands to one guild. Empty means global.
	GuildID string `json:"guild_id,omitempty" yaml:"guild_id,omitempty"`

	// Commands is the desired command list.
	Commands []command.Spec `json:"commands" yaml:"commands"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse validates and decodes a YAML or JSON manifest. JSON is accepted as
// the YAML subset it is.
func Parse(data []byte) (*Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
	}

	if err := defaultValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if err := registry.Validate(m.Commands); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal encodes m as YAML.
func Marshal(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// FromRemote builds a manifest from registered commands, dropping the
// server-assigned fields.
func FromRemote(guildID string, remote []command.Remote) *Manifest {
	m := &Manifest{GuildID: guildID, Commands: make([]command.Spec, 0, len(remote))}
	for _, r := range remote {
		spec := r.Spec
		spec.Options = command.NormalizeOptions(spec.Options)
		m.Commands = append(m.Commands, spec)
	}
	return m
}

// toJSONValue converts a YAML-decoded document into the value shapes a JSON
// decoder would produce, so the schema sees numbers and maps the same way
// for both input formats.
func toJSONValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return unmarshalJSON(raw)
}
