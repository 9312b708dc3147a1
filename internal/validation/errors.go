// Package validation implements the field-level and cross-field rules that
// guard the two aggregates (submissions and certifications) before anything
// reaches the store. It always aggregates every violated field into a single
// map so clients can fix all problems in one round trip; it never fails fast.
package validation

// Errors maps a field name to the list of human-readable messages describing
// why the field was rejected. An empty map means the input passed validation.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one recorded violation.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Empty reports whether no field was rejected.
func (e Errors) Empty() bool { return len(e) == 0 }

// Merge folds every message from other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}
