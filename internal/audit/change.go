package audit

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/datatypes"
)

type ChangeKind string

const (
	KindField  ChangeKind = "field"
	KindStatus ChangeKind = "status"
)

// Change is one of FieldChange or StatusChange.
type Change interface {
	Kind() ChangeKind
	isChange()
}

// FieldChange records a top-level field moving from Old to New. A nil side
// means the field was absent.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

func (FieldChange) Kind() ChangeKind { return KindField }
func (FieldChange) isChange()        {}

type StatusChange struct {
	Old string
	New string
}

func (StatusChange) Kind() ChangeKind { return KindStatus }
func (StatusChange) isChange()        {}

// Envelope is the stored and wire form of a Change.
type Envelope struct {
	Kind  ChangeKind `json:"kind" enum:"field,status"`
	Field string     `json:"field,omitempty"`
	Old   any        `json:"old"`
	New   any        `json:"new"`
}

type ChangeSet []Change

func (cs ChangeSet) Envelopes() ([]Envelope, error) {
	out := make([]Envelope, 0, len(cs))
	for _, c := range cs {
		switch c := c.(type) {
		case FieldChange:
			out = append(out, Envelope{Kind: KindField, Field: c.Field, Old: c.Old, New: c.New})
		case StatusChange:
			out = append(out, Envelope{Kind: KindStatus, Old: c.Old, New: c.New})
		default:
			return nil, fmt.Errorf("audit: unknown change type %T", c)
		}
	}
	return out, nil
}

func (cs ChangeSet) MarshalJSON() ([]byte, error) {
	envelopes, err := cs.Envelopes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelopes)
}

func (cs *ChangeSet) UnmarshalJSON(data []byte) error {
	var envelopes []Envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(ChangeSet, 0, len(envelopes))
	for _, e := range envelopes {
		switch e.Kind {
		case KindField:
			out = append(out, FieldChange{Field: e.Field, Old: e.Old, New: e.New})
		case KindStatus:
			oldStatus, _ := e.Old.(string)
			newStatus, _ := e.New.(string)
			out = append(out, StatusChange{Old: oldStatus, New: newStatus})
		default:
			return fmt.Errorf("audit: unknown change kind %q", e.Kind)
		}
	}
	*cs = out
	return nil
}

// JSON encodes the set for the audit_logs.changes column. Empty sets are stored as NULL.
func (cs ChangeSet) JSON() (datatypes.JSON, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// DecodeChanges reads a stored changes column back into typed changes.
func DecodeChanges(raw datatypes.JSON) (ChangeSet, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var cs ChangeSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("decode audit changes: %w", err)
	}
	return cs, nil
}

// FieldChanges is the result of Diff, keyed by field name.
type FieldChanges map[string]FieldChange

func (fc FieldChanges) Empty() bool { return len(fc) == 0 }

// Fields returns the changed field names in sorted order.
func (fc FieldChanges) Fields() []string {
	fields := make([]string, 0, len(fc))
	for f := range fc {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (fc FieldChanges) ChangeSet() ChangeSet {
	cs := make(ChangeSet, 0, len(fc))
	for _, f := range fc.Fields() {
		cs = append(cs, fc[f])
	}
	return cs
}
