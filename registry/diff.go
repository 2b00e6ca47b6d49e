package registry

import (
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xraph/herald/command"
)

// Patch field names, as sent on the wire.
const (
	FieldName             = "name"
	FieldDescription      = "description"
	FieldOptions          = "options"
	FieldType             = "type"
	FieldIntegrationTypes = "integration_types"
	FieldContexts         = "contexts"
)

var (
	optionsEqual = []cmp.Option{cmpopts.EquateEmpty()}

	// Context lists are sets; order is not significant.
	contextsEqual = []cmp.Option{
		cmpopts.EquateEmpty(),
		cmpopts.SortSlices(func(a, b command.InstallationContext) bool { return a < b }),
		cmpopts.SortSlices(func(a, b command.InteractionContext) bool { return a < b }),
	}
)

// Diff flags the top-level fields that differ between a remote command and
// its desired definition.
type Diff struct {
	Name             bool
	Description      bool
	Options          bool
	Type             bool
	IntegrationTypes bool
	Contexts         bool
}

// Compare computes the diff between remote and desired. Options are
// normalized before comparison. Installation and interaction contexts are
// compared only when desired declares them, so platform defaults on the remote
// side never cause a patch.
func Compare(remote, desired command.Spec) Diff {
	d := Diff{
		Name:        remote.Name != desired.Name,
		Description: remote.Description != desired.Description,
		Type:        remote.Type.OrDefault() != desired.Type.OrDefault(),
		Options: !cmp.Equal(
			command.NormalizeOptions(remote.Options),
			command.NormalizeOptions(desired.Options),
			optionsEqual...,
		),
	}
	if desired.IntegrationTypes != nil {
		d.IntegrationTypes = !cmp.Equal(remote.IntegrationTypes, desired.IntegrationTypes, contextsEqual...)
	}
	if desired.Contexts != nil {
		d.Contexts = !cmp.Equal(remote.Contexts, desired.Contexts, contextsEqual...)
	}
	return d
}

// Empty reports whether no field changed.
func (d Diff) Empty() bool {
	return d == Diff{}
}

// Fields returns the wire names of the changed fields in a stable order.
func (d Diff) Fields() []string {
	var out []string
	if d.Name {
		out = append(out, FieldName)
	}
	if d.Description {
		out = append(out, FieldDescription)
	}
	if d.Options {
		out = append(out, FieldOptions)
	}
	if d.Type {
		out = append(out, FieldType)
	}
	if d.IntegrationTypes {
		out = append(out, FieldIntegrationTypes)
	}
	if d.Contexts {
		out = append(out, FieldContexts)
	}
	return out
}

// Patch builds a PATCH body holding only the changed fields, taken from desired.
func (d Diff) Patch(desired command.Spec) map[string]any {
	p := make(map[string]any)
	if d.Name {
		p[FieldName] = desired.Name
	}
	if d.Description {
		p[FieldDescription] = desired.Description
	}
	if d.Options {
		opts := command.NormalizeOptions(desired.Options)
		if opts == nil {
			// An explicit empty list clears the remote options.
			opts = []command.Option{}
		}
		p[FieldOptions] = opts
	}
	if d.Type {
		p[FieldType] = desired.Type.OrDefault()
	}
	if d.IntegrationTypes {
		p[FieldIntegrationTypes] = slices.Clone(desired.IntegrationTypes)
	}
	if d.Contexts {
		p[FieldContexts] = slices.Clone(desired.Contexts)
	}
	return p
}

// Merge shapes the record reported for a reconciled command. The desired
// definition wins for every field it declares; server fields (id, application
// id, guild id, version) and undeclared optional fields come from remote.
func Merge(remote command.Remote, desired command.Spec) command.Remote {
	out := remote
	out.Spec = command.Spec{
		Name:                     desired.Name,
		Type:                     desired.Type.OrDefault(),
		Description:              desired.Description,
		Options:                  command.NormalizeOptions(desired.Options),
		IntegrationTypes:         slices.Clone(desired.IntegrationTypes),
		Contexts:                 slices.Clone(desired.Contexts),
		DefaultMemberPermissions: desired.DefaultMemberPermissions,
		NSFW:                     desired.NSFW,
	}
	if desired.IntegrationTypes == nil {
		out.IntegrationTypes = slices.Clone(remote.IntegrationTypes)
	}
	if desired.Contexts == nil {
		out.Contexts = slices.Clone(remote.Contexts)
	}
	if desired.DefaultMemberPermissions == nil {
		out.DefaultMemberPermissions = remote.DefaultMemberPermissions
	}
	return out
}
