package model

import (
	"fmt"
	"strings"
)

// Record is a single person or data-source row. Field names vary in case
// and convention between sources ("email", "Email", "mobile_phone",
// "Mobile Phone"), so values are looked up by candidate key lists.
type Record map[string]any

var (
	idKeys        = []string{"id", "ID", "Id", "record_id", "recordId", "Record ID"}
	nameKeys      = []string{"name", "Name", "full_name", "fullName", "Full Name"}
	firstNameKeys = []string{"first_name", "firstName", "First Name"}
	lastNameKeys  = []string{"last_name", "lastName", "Last Name"}
)

// Lookup returns the first value among keys that is present and non-empty.
func (r Record) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// LookupString is Lookup with the value rendered as a trimmed string.
func (r Record) LookupString(keys ...string) string {
	v, ok := r.Lookup(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers decode as float64; keep integral IDs free of exponents.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// ID returns the record's identifier, or "" when it carries none.
func (r Record) ID() string {
	return r.LookupString(idKeys...)
}

// DisplayName returns a human label for the record: an explicit name field,
// else first and last name joined.
func (r Record) DisplayName() string {
	if n := r.LookupString(nameKeys...); n != "" {
		return n
	}
	first := r.LookupString(firstNameKeys...)
	last := r.LookupString(lastNameKeys...)
	return strings.TrimSpace(first + " " + last)
}
