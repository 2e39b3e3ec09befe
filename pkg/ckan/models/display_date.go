package models

import (
	"strings"
	"time"
)

// DisplayDateLayout is the day.month.year layout the dashboard renders dates in.
const DisplayDateLayout = "02.01.2006"

// Layouts CKAN portals use for metadata_created / last_modified. Most omit the
// timezone.
var sourceLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// DisplayDate formats a source-supplied timestamp for display. Values that do
// not parse are returned unchanged; the source string is never rewritten.
func DisplayDate(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	for _, layout := range sourceLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DisplayDateLayout)
		}
	}
	return s
}
