package command

import (
	"encoding/json"
	"math"
)

// OptionType is the type of a command option.
type OptionType int

// Option types.
const (
	OptionSubCommand      OptionType = 1
	OptionSubCommandGroup OptionType = 2
	OptionString          OptionType = 3
	OptionInteger         OptionType = 4
	OptionBoolean         OptionType = 5
	OptionUser            OptionType = 6
	OptionChannel         OptionType = 7
	OptionRole            OptionType = 8
	OptionMentionable     OptionType = 9
	OptionNumber          OptionType = 10
	OptionAttachment      OptionType = 11
)

// Option is a parameter of a chat-input command. Only the fields herald
// compares and sends are modelled.
type Option struct {
	Type         OptionType `json:"type" yaml:"type"`
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required     bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Autocomplete bool       `json:"autocomplete,omitempty" yaml:"autocomplete,omitempty"`
	Choices      []Choice   `json:"choices,omitempty" yaml:"choices,omitempty"`
	Options      []Option   `json:"options,omitempty" yaml:"options,omitempty"`
}

// Choice is a predefined value for a string, integer or number option.
type Choice struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// NormalizeOptions returns a deep copy of opts with defaulted fields made
// explicit: nil and empty lists collapse to nil and numeric choice values are
// widened to float64, so that semantically equal options compare equal
// regardless of how they were decoded or authored.
func NormalizeOptions(opts []Option) []Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		n := Option{
			Type:         o.Type,
			Name:         o.Name,
			Description:  o.Description,
			Required:     o.Required,
			Autocomplete: o.Autocomplete,
			Options:      NormalizeOptions(o.Options),
		}
		if len(o.Choices) > 0 {
			n.Choices = make([]Choice, len(o.Choices))
			for j, c := range o.Choices {
				n.Choices[j] = Choice{Name: c.Name, Value: normalizeValue(c.Value)}
			}
		}
		out[i] = n
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
		return x.String()
	default:
		return v
	}
}
