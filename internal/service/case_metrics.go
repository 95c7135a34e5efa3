package service

import "github.com/noah-isme/caselog-api/internal/models"

// AggregateCases counts records per canonical severity. Unmapped codes only count
// toward the total.
func AggregateCases(records []models.CaseRecord) models.CaseMetrics {
	m := models.CaseMetrics{Total: len(records)}
	for _, rec := range records {
		switch rec.CaseCode {
		case models.SeverityRed:
			m.Red++
		case models.SeverityYellow:
			m.Yellow++
		}
	}
	return m
}
