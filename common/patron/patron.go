package patron

import (
	"encoding/json"
	"fmt"
)

// Record is one active patron, stored under their username.
type Record struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

// Mapping is the authoritative patron list in the current schema:
// username -> Record. Keys are unique; insertion order is irrelevant.
type Mapping map[string]Record

// LegacyRecord is the pre-conversion value shape, keyed by user id.
type LegacyRecord struct {
	Name string `json:"name"`
}

// LegacyMapping is the legacy schema: user_id -> LegacyRecord.
type LegacyMapping map[string]LegacyRecord

// Schema identifies how a stored document is keyed.
type Schema string

const (
	// SchemaID is the legacy keying: user_id -> {name}.
	SchemaID Schema = "id"
	// SchemaUsername is the current keying: username -> {user_id, full_name}.
	SchemaUsername Schema = "username"
)

// Document is the envelope persisted in a store cell. The schema tag is
// explicit so the keying is never inferred from key shape.
type Document struct {
	Schema  Schema          `json:"schema"`
	Patrons json.RawMessage `json:"patrons"`
}

// FindByUserID returns the username of the record holding the given user id.
// Usernames can change between deliveries, so delete events sometimes only
// carry an id; this lookup is best-effort and scans the whole mapping.
func (m Mapping) FindByUserID(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}
	for username, rec := range m {
		if rec.UserID == userID {
			return username, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks the current-schema invariants: non-empty username keys and
// a non-empty user id on every record.
func (m Mapping) Validate() error {
	for username, rec := range m {
		if username == "" {
			return fmt.Errorf("mapping contains an empty username key")
		}
		if rec.UserID == "" {
			return fmt.Errorf("patron %q has an empty user_id", username)
		}
	}
	return nil
}

// EncodeDocument serializes a current-schema mapping into its envelope.
func EncodeDocument(m Mapping) ([]byte, error) {
	patrons, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal patrons: %w", err)
	}
	doc := Document{Schema: SchemaUsername, Patrons: patrons}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// EncodeLegacyDocument serializes a legacy mapping into its envelope. Only the
// conversion tooling writes this shape (when wrapping a pre-envelope blob).
func EncodeLegacyDocument(m LegacyMapping) ([]byte, error) {
	patrons, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal patrons: %w", err)
	}
	doc := Document{Schema: SchemaID, Patrons: patrons}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses a stored envelope without interpreting the patrons
// blob. It rejects envelopes with an unknown or missing schema tag.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	switch doc.Schema {
	case SchemaID, SchemaUsername:
		return &doc, nil
	case "":
		return nil, fmt.Errorf("document has no schema tag")
	default:
		return nil, fmt.Errorf("unknown document schema %q", doc.Schema)
	}
}

// DecodeMapping parses the patrons blob of a username-schema document and
// validates the current-schema invariants.
func (d *Document) DecodeMapping() (Mapping, error) {
	if d.Schema != SchemaUsername {
		return nil, fmt.Errorf("document schema is %q, want %q", d.Schema, SchemaUsername)
	}
	var m Mapping
	if err := json.Unmarshal(d.Patrons, &m); err != nil {
		return nil, fmt.Errorf("unmarshal patrons: %w", err)
	}
	if m == nil {
		m = Mapping{}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeLegacyMapping parses the patrons blob of an id-schema document.
func (d *Document) DecodeLegacyMapping() (LegacyMapping, error) {
	if d.Schema != SchemaID {
		return nil, fmt.Errorf("document schema is %q, want %q", d.Schema, SchemaID)
	}
	var m LegacyMapping
	if err := json.Unmarshal(d.Patrons, &m); err != nil {
		return nil, fmt.Errorf("unmarshal patrons: %w", err)
	}
	if m == nil {
		m = LegacyMapping{}
	}
	return m, nil
}
