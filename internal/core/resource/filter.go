package resource

import (
	"strings"

	"golang.org/x/text/cases"
)

const StatusAll = "all"

// ApplyFilter keeps the records that contain search in any searchable field
// and match status. Relative order is preserved and the input is not modified.
func ApplyFilter(items []Record, searchable []string, search string, status *StatusFilter) []Record {
	fold := cases.Fold()
	needle := fold.String(search)

	out := make([]Record, 0, len(items))
	for _, r := range items {
		if status != nil && !status.Matches(r) {
			continue
		}
		if search != "" && !containsAny(fold, r, searchable, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(fold cases.Caser, r Record, fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(fold.String(r.String(f)), needle) {
			return true
		}
	}
	return false
}

func (s *StatusFilter) Matches(r Record) bool {
	v, ok := r.Fields[s.Field]
	value := s.Missing
	if ok && v != nil {
		value = ValueString(v)
	}
	return strings.EqualFold(value, s.Equals)
}
