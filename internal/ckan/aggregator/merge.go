package aggregator

import (
	"strings"

	"github.com/geesthacht-opendata/pkg/ckan/models"
)

// Dedup drops every package whose ID was already seen, keeping the first
// occurrence and the relative order of survivors. The input is not modified.
func Dedup(packages []models.Package) []models.Package {
	seen := make(map[string]struct{}, len(packages))
	out := make([]models.Package, 0, len(packages))
	for _, pkg := range packages {
		if _, ok := seen[pkg.ID]; ok {
			continue
		}
		seen[pkg.ID] = struct{}{}
		out = append(out, pkg)
	}
	return out
}

// FilterRelevant keeps packages where at least one term occurs, ignoring
// case, in the title, the notes or the organization machine name.
func FilterRelevant(packages []models.Package, terms []string) []models.Package {
	needles := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			needles = append(needles, term)
		}
	}

	out := make([]models.Package, 0, len(packages))
	for _, pkg := range packages {
		if isRelevant(&pkg, needles) {
			out = append(out, pkg)
		}
	}
	return out
}

func isRelevant(pkg *models.Package, needles []string) bool {
	fields := [...]string{
		strings.ToLower(pkg.Title),
		strings.ToLower(pkg.Notes),
		strings.ToLower(pkg.OrganizationName()),
	}
	for _, needle := range needles {
		for _, field := range fields {
			if strings.Contains(field, needle) {
				return true
			}
		}
	}
	return false
}
