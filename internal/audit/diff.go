package audit

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gdg-garage/vegfest-api/internal/models"
)

// systemFields never show up in a diff. Both the Go and the json spelling are
// listed because gorm.Model carries no json tags.
var systemFields = []string{
	"ID", "id",
	"Version", "version",
	"CreatedAt", "created_at",
	"UpdatedAt", "updated_at",
	"DeletedAt", "deleted_at",
	"UserID", "user_id",
}

// Diff compares the top-level fields of two snapshots as they serialize to
// JSON. Nested values are compared as a whole. It returns nil when nothing
// changed.
func Diff(original, updated any, ignored ...string) (FieldChanges, error) {
	before, err := project(original)
	if err != nil {
		return nil, fmt.Errorf("diff original: %w", err)
	}
	after, err := project(updated)
	if err != nil {
		return nil, fmt.Errorf("diff updated: %w", err)
	}

	skip := make(map[string]struct{}, len(systemFields)+len(ignored))
	for _, f := range systemFields {
		skip[f] = struct{}{}
	}
	for _, f := range ignored {
		skip[f] = struct{}{}
	}

	changes := FieldChanges{}
	for field, oldValue := range before {
		if _, ok := skip[field]; ok {
			continue
		}
		newValue, present := after[field]
		if !present || !reflect.DeepEqual(oldValue, newValue) {
			changes[field] = FieldChange{Field: field, Old: oldValue, New: newValue}
		}
	}
	for field, newValue := range after {
		if _, ok := skip[field]; ok {
			continue
		}
		if _, present := before[field]; !present {
			changes[field] = FieldChange{Field: field, Old: nil, New: newValue}
		}
	}

	if changes.Empty() {
		return nil, nil
	}
	return changes, nil
}

func project(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type DocumentChange struct {
	Type string
	Old  models.DocumentStatus
	New  models.DocumentStatus
}

// DiffDocuments pairs documents by type and reports status transitions only.
// Documents present on just one side are not reported.
func DiffDocuments(before, after []models.Document) []DocumentChange {
	previous := make(map[string]models.DocumentStatus, len(before))
	for _, d := range before {
		previous[d.Type] = d.Status
	}

	var changes []DocumentChange
	for _, d := range after {
		old, ok := previous[d.Type]
		if !ok || old == d.Status {
			continue
		}
		changes = append(changes, DocumentChange{Type: d.Type, Old: old, New: d.Status})
	}
	return changes
}
