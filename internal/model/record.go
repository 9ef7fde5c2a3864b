package model

// Record is a single row of a schema model, keyed by field name.
// Values are plain Go types (string, int64, float64, bool, time.Time) so a
// Record can cross layers (repository, service, HTTP) without coupling to
// persistence.
type Record map[string]any

// ID returns the record's primary key, or "" when unset.
func (r Record) ID() string {
	if v, ok := r["id"].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
