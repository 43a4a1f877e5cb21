// Package vault defines the generalized scoped-CRUD engine: one record shape
// and one schema registry parameterize list/create/update/delete across all
// entity families, instead of duplicating the flow per family.
package vault

import (
	"fmt"
	"sort"
)

// Family describes one entity family: its table-facing name, the full field
// set, the fields that must be non-empty on create, and any fields whose
// values are constrained to a fixed set of option labels.
type Family struct {
	Name     string
	Fields   []string
	Required []string
	// Options maps a field name to its allowed labels. Empty values are
	// still rejected only if the field is also in Required.
	Options map[string][]string
}

// HasField reports whether name is part of this family's schema.
func (f Family) HasField(name string) bool {
	for _, field := range f.Fields {
		if field == name {
			return true
		}
	}
	return false
}

// Registry resolves family definitions by name.
type Registry struct {
	families map[string]Family
}

// NewRegistry builds a registry from the given families.
func NewRegistry(families ...Family) *Registry {
	m := make(map[string]Family, len(families))
	for _, f := range families {
		m[f.Name] = f
	}
	return &Registry{families: m}
}

// Lookup returns the family definition, or an error for unknown names.
// Every entry point validates the family here before touching a store, which
// also keeps unvetted names out of SQL.
func (r *Registry) Lookup(name string) (Family, error) {
	f, ok := r.families[name]
	if !ok {
		return Family{}, fmt.Errorf("unknown entity family %q", name)
	}
	return f, nil
}

// Names returns all registered family names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var accountStatusOptions = []string{"Active", "Inactive", "Closed"}

// DefaultRegistry returns the ten entity families of the vault. All domain
// fields are freeform display strings; monetary amounts and dates are stored
// exactly as the user typed them.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Family{
			Name:     "bank_accounts",
			Fields:   []string{"type", "bank", "account_number", "balance", "status"},
			Required: []string{"type", "bank", "account_number"},
			Options:  map[string][]string{"status": accountStatusOptions},
		},
		Family{
			Name:     "investments",
			Fields:   []string{"type", "scheme", "company", "units", "shares", "current_value", "gain_loss"},
			Required: []string{"type", "current_value"},
		},
		Family{
			Name:     "insurance_policies",
			Fields:   []string{"type", "provider", "policy_number", "premium", "maturity_date", "status"},
			Required: []string{"type", "provider", "policy_number"},
			Options:  map[string][]string{"status": accountStatusOptions},
		},
		Family{
			Name:     "health_records",
			Fields:   []string{"type", "provider", "date", "status", "notes"},
			Required: []string{"type", "provider", "date"},
			Options:  map[string][]string{"status": {"Normal", "Ongoing", "Resolved"}},
		},
		Family{
			Name:     "medications",
			Fields:   []string{"name", "dosage", "frequency", "prescribed_by", "start_date"},
			Required: []string{"name", "dosage", "frequency"},
		},
		Family{
			Name:     "passwords",
			Fields:   []string{"service", "username", "password", "category"},
			Required: []string{"service", "username", "password"},
			Options:  map[string][]string{"category": {"Banking", "Email", "Social", "Government", "Other"}},
		},
		Family{
			Name:     "security_questions",
			Fields:   []string{"service", "question", "answer", "category"},
			Required: []string{"service", "question", "answer"},
			Options:  map[string][]string{"category": {"Banking", "Email", "Social", "Government", "Other"}},
		},
		Family{
			Name:     "properties",
			Fields:   []string{"type", "address", "area", "value", "registration_number", "purchase_date"},
			Required: []string{"type", "address"},
		},
		Family{
			Name:     "vehicles",
			Fields:   []string{"type", "model", "registration_number", "purchase_value", "current_value", "insurance_expiry"},
			Required: []string{"type", "model", "registration_number"},
		},
		Family{
			Name:     "nominees",
			Fields:   []string{"name", "relation", "email", "phone"},
			Required: []string{"name", "relation"},
		},
	)
}
