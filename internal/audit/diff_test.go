package audit

import (
	"testing"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDiff_ReportsChangedFieldsOnly(t *testing.T) {
	before := models.RegistrationFields{
		OrganizationName: "Green Bites",
		ContactEmail:     "old@greenbites.test",
		BoothCount:       1,
		Address:          models.Address{City: "Brno"},
	}
	after := before
	after.ContactEmail = "new@greenbites.test"
	after.BoothCount = 2
	after.Address.City = "Praha"

	changes, err := Diff(before, after)
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "booth_count", "contact_email"}, changes.Fields())

	assert.Equal(t, "old@greenbites.test", changes["contact_email"].Old)
	assert.Equal(t, "new@greenbites.test", changes["contact_email"].New)
	assert.Equal(t, float64(1), changes["booth_count"].Old)
	assert.Equal(t, float64(2), changes["booth_count"].New)
	// Nested values are reported whole.
	assert.Equal(t, "Praha", changes["address"].New.(map[string]any)["city"])
}

func TestDiff_NoChangesIsNil(t *testing.T) {
	f := models.RegistrationFields{OrganizationName: "Same"}
	changes, err := Diff(f, f)
	require.NoError(t, err)
	assert.Nil(t, changes)
	assert.True(t, changes.Empty())
	assert.Empty(t, changes.ChangeSet())
}

func TestDiff_SkipsSystemAndIgnoredFields(t *testing.T) {
	before := models.Registration{
		Model:  gorm.Model{ID: 1, CreatedAt: time.Unix(0, 0)},
		UserID: 4,
		Status: models.StatusPending,
	}
	after := before
	after.ID = 2
	after.UpdatedAt = time.Now()
	after.Version = 9
	after.UserID = 5
	after.Status = models.StatusApproved
	after.OrganizationName = "Renamed"

	changes, err := Diff(before, after, "status")
	require.NoError(t, err)
	assert.Equal(t, []string{"organization_name"}, changes.Fields())
}

func TestDiff_FieldsPresentOnOneSide(t *testing.T) {
	changes, err := Diff(map[string]any{"a": 1}, map[string]any{"b": 2})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Nil(t, changes["a"].New)
	assert.Nil(t, changes["b"].Old)
}

func TestDiff_UnmarshalableInput(t *testing.T) {
	_, err := Diff(make(chan int), struct{}{})
	assert.Error(t, err)
}

func TestFieldChanges_ChangeSetIsSorted(t *testing.T) {
	fc := FieldChanges{
		"b": {Field: "b", Old: 1, New: 2},
		"a": {Field: "a", Old: "x", New: "y"},
	}
	cs := fc.ChangeSet()
	require.Len(t, cs, 2)
	assert.Equal(t, "a", cs[0].(FieldChange).Field)
	assert.Equal(t, "b", cs[1].(FieldChange).Field)
}

func TestDiffDocuments(t *testing.T) {
	before := []models.Document{
		{Type: "business_license", Status: models.DocumentPending},
		{Type: "insurance", Status: models.DocumentPending},
		{Type: "menu", Status: models.DocumentApproved},
	}
	after := []models.Document{
		{Type: "business_license", Status: models.DocumentApproved},
		{Type: "insurance", Status: models.DocumentPending},
		{Type: "menu", Status: models.DocumentRejected},
		{Type: "new_upload", Status: models.DocumentPending},
	}

	changes := DiffDocuments(before, after)
	assert.Equal(t, []DocumentChange{
		{Type: "business_license", Old: models.DocumentPending, New: models.DocumentApproved},
		{Type: "menu", Old: models.DocumentApproved, New: models.DocumentRejected},
	}, changes)

	assert.Empty(t, DiffDocuments(before, before))
	assert.Empty(t, DiffDocuments(nil, after))
}
