package aggregator

import (
	"testing"

	"github.com/geesthacht-opendata/pkg/ckan/models"
	"github.com/stretchr/testify/assert"
)

func TestDedup_FirstOccurrenceWins(t *testing.T) {
	in := []models.Package{
		pkg("x1", "Park Plan"),
		pkg("x2", "Energy Report"),
		pkg("x1", "Park Plan (SH)"),
		pkg("x3", "Radwege"),
		pkg("x2", "Energy Report (SH)"),
	}

	got := Dedup(in)

	assert.Equal(t, []string{"x1", "x2", "x3"}, ids(got))
	assert.Equal(t, "Park Plan", got[0].Title)
	assert.Equal(t, "Energy Report", got[1].Title)
	assert.Len(t, in, 5)
}

func TestDedup_Idempotent(t *testing.T) {
	in := []models.Package{pkg("a", "1"), pkg("b", "2"), pkg("a", "3"), pkg("c", "4"), pkg("b", "5")}

	once := Dedup(in)
	twice := Dedup(once)

	assert.Equal(t, once, twice)
}

func TestDedup_Empty(t *testing.T) {
	assert.Empty(t, Dedup(nil))
	assert.NotNil(t, Dedup(nil))
}

func TestFilterRelevant(t *testing.T) {
	in := []models.Package{
		pkg("title", "Klimaschutzkonzept Geesthacht"),
		{ID: "notes", Title: "Bebauungsplan 12", Notes: "Stadt Lauenburg/Elbe"},
		{ID: "org", Title: "Haushalt", Organization: &models.Organization{Title: "Stadt", Name: "stadt-geesthacht"}},
		{ID: "org-title-only", Title: "Haushalt", Organization: &models.Organization{Title: "Geesthacht", Name: "kreis-rz"}},
		pkg("none", "Wetter Kiel"),
	}

	got := FilterRelevant(in, []string{"GEESTHACHT", "lauenburg", "  "})
	assert.Equal(t, []string{"title", "notes", "org"}, ids(got))
}

func TestFilterRelevant_NoTermsKeepsNothing(t *testing.T) {
	assert.Empty(t, FilterRelevant([]models.Package{pkg("a", "Geesthacht")}, nil))
}
