package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/caselog-api/internal/models"
)

var severitySpellings = map[string]models.Severity{
	"red":    models.SeverityRed,
	"Red":    models.SeverityRed,
	"أحمر":   models.SeverityRed,
	"yellow": models.SeverityYellow,
	"Yellow": models.SeverityYellow,
	"أصفر":   models.SeverityYellow,
}

// NormalizeSeverity maps a known spelling to its canonical category. Unknown values
// come back unchanged with ok=false.
func NormalizeSeverity(raw string) (models.Severity, bool) {
	if canonical, ok := severitySpellings[strings.TrimSpace(raw)]; ok {
		return canonical, true
	}
	return models.Severity(raw), false
}

// NormalizeCase converts a stored row into the canonical record. It never fails;
// absent text fields become models.Unspecified and an absent date stays zero.
func NormalizeCase(raw models.RawCase) models.CaseRecord {
	record := models.CaseRecord{
		ID:          firstText(raw, "case_unique_id", "caseUniqueId", "id"),
		RescuerName: textOrUnspecified(raw, "rescuerName", "rescuer_name"),
		RescuerRank: textOrUnspecified(raw, "rescuerRank", "rescuer_rank"),
		Trainer:     textOrUnspecified(raw, "trainer"),
		CaseDetails: textOrUnspecified(raw, "caseDetails", "case_details"),
		Date:        dateField(raw, "date"),
		CreatedAt:   instantField(raw, "created_at", "createdAt"),
	}

	if code := firstText(raw, "caseCode", "case_code"); code != "" {
		record.CaseCode, _ = NormalizeSeverity(code)
	} else {
		record.CaseCode = models.Severity(models.Unspecified)
	}
	return record
}

func firstText(raw models.RawCase, keys ...string) string {
	for _, key := range keys {
		if s := asText(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func textOrUnspecified(raw models.RawCase, keys ...string) string {
	if s := firstText(raw, keys...); s != "" {
		return s
	}
	return models.Unspecified
}

func asText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func dateField(raw models.RawCase, key string) models.CaseDate {
	switch val := raw[key].(type) {
	case time.Time:
		return models.NewCaseDate(val)
	case *time.Time:
		if val != nil {
			return models.NewCaseDate(*val)
		}
	case string:
		d, _ := models.ParseCaseDate(val)
		return d
	case []byte:
		d, _ := models.ParseCaseDate(string(val))
		return d
	}
	return models.CaseDate{}
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func instantField(raw models.RawCase, keys ...string) time.Time {
	for _, key := range keys {
		switch val := raw[key].(type) {
		case time.Time:
			return val.UTC()
		case string:
			if t, ok := parseInstant(val); ok {
				return t
			}
		case []byte:
			if t, ok := parseInstant(string(val)); ok {
				return t
			}
		}
	}
	return time.Time{}
}

func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
