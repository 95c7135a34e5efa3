package service

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/caselog-api/internal/models"
)

// DefaultCriteria fills in the default sort of the filtered view.
func DefaultCriteria(c models.FilterCriteria) models.FilterCriteria {
	if c.SortBy == "" {
		c.SortBy = models.SortByDate
	}
	if c.SortDirection == "" {
		c.SortDirection = models.SortDesc
	}
	return c
}

// ApplyFilters derives the filtered view. Stages run in a fixed order and all
// present criteria combine with AND. The input slice is never modified.
func ApplyFilters(records []models.CaseRecord, criteria models.FilterCriteria) []models.CaseRecord {
	criteria = DefaultCriteria(criteria)
	out := make([]models.CaseRecord, 0, len(records))
	if len(records) == 0 {
		return out
	}

	severity := strings.TrimSpace(criteria.Severity)
	var wantSeverity models.Severity
	if severity != "" {
		wantSeverity, _ = NormalizeSeverity(severity)
	}
	name := strings.ToLower(strings.TrimSpace(criteria.RescuerName))
	rank := strings.TrimSpace(criteria.RescuerRank)
	trainer := strings.TrimSpace(criteria.Trainer)

	for _, rec := range records {
		if severity != "" && rec.CaseCode != wantSeverity {
			continue
		}
		if !criteria.DateFrom.IsZero() && (rec.Date.IsZero() || rec.Date.Ordinal() < models.DayOrdinal(criteria.DateFrom)) {
			continue
		}
		if !criteria.DateTo.IsZero() && (rec.Date.IsZero() || rec.Date.Ordinal() > models.DayOrdinal(criteria.DateTo)) {
			continue
		}
		if name != "" && !nameContains(rec.RescuerName, name) {
			continue
		}
		if rank != "" && !exactField(rec.RescuerRank, rank) {
			continue
		}
		if trainer != "" && !exactField(rec.Trainer, trainer) {
			continue
		}
		out = append(out, rec)
	}

	sortCases(out, criteria.SortBy, criteria.SortDirection)
	return out
}

func nameContains(value, needle string) bool {
	if value == models.Unspecified {
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(value)), needle)
}

func exactField(value, want string) bool {
	if value == models.Unspecified {
		return false
	}
	return strings.TrimSpace(value) == want
}

// sortCases orders in place. Missing keys compare lowest and ties keep their input
// order regardless of direction.
func sortCases(records []models.CaseRecord, key models.SortKey, dir models.SortDirection) {
	var cmp func(a, b models.CaseRecord) int
	switch key {
	case models.SortByRescuerName:
		col := collate.New(language.Arabic, collate.IgnoreCase)
		cmp = func(a, b models.CaseRecord) int {
			am, bm := a.RescuerName == models.Unspecified, b.RescuerName == models.Unspecified
			switch {
			case am && bm:
				return 0
			case am:
				return -1
			case bm:
				return 1
			}
			return col.CompareString(strings.TrimSpace(a.RescuerName), strings.TrimSpace(b.RescuerName))
		}
	default:
		cmp = func(a, b models.CaseRecord) int {
			switch {
			case a.Date.IsZero() && b.Date.IsZero():
				return 0
			case a.Date.IsZero():
				return -1
			case b.Date.IsZero():
				return 1
			}
			return a.Date.Ordinal() - b.Date.Ordinal()
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(records[i], records[j])
		if dir == models.SortAsc {
			return c < 0
		}
		return c > 0
	})
}
