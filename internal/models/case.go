package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Unspecified marks a case field that the store did not provide.
const Unspecified = "غير محدد"

// DateLayout is the calendar-day format used for case dates.
const DateLayout = "2006-01-02"

// Severity is the canonical case code.
type Severity string

const (
	SeverityRed    Severity = "red"
	SeverityYellow Severity = "yellow"
)

// Known reports whether the severity is one of the two canonical categories.
func (s Severity) Known() bool {
	return s == SeverityRed || s == SeverityYellow
}

// Rescuer ranks accepted by the submission form.
const (
	RankLeader = "قائد"
	RankScout  = "كشاف"
	RankMedic  = "مسعف"
)

// Ranks lists the rescuer ranks in display order.
var Ranks = []string{RankLeader, RankScout, RankMedic}

// Trainers is the fixed trainer roster.
var Trainers = []string{
	"رقية العبدلله",
	"ريهام الريشاني",
	"جوهر ابو فخر",
	"اية المحيثاوي",
	"غسان صالحة",
	"عدي النداف",
	"رهف العمر",
	"غنوة مرشد",
	"غيث ابو الفضل",
	"وسام شلغين",
	"ابي عصمان",
	"سليمان سعيد",
	"يمامة ابو عمار",
	"عبير ابو راس",
	"هادي عواد",
	"رامي السمان",
}

// CaseDate is a calendar day. The zero value means the date is missing.
type CaseDate struct {
	time.Time
}

// NewCaseDate truncates t to its calendar day in UTC.
func NewCaseDate(t time.Time) CaseDate {
	if t.IsZero() {
		return CaseDate{}
	}
	return CaseDate{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseCaseDate accepts YYYY-MM-DD or an RFC3339 instant.
func ParseCaseDate(raw string) (CaseDate, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == Unspecified {
		return CaseDate{}, false
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return NewCaseDate(t), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return NewCaseDate(t), true
	}
	if len(raw) > len(DateLayout) {
		if t, err := time.Parse(DateLayout, raw[:len(DateLayout)]); err == nil {
			return NewCaseDate(t), true
		}
	}
	return CaseDate{}, false
}

// Ordinal returns yyyymmdd for day-granularity comparison.
func (d CaseDate) Ordinal() int {
	return DayOrdinal(d.Time)
}

// DayOrdinal returns yyyymmdd of t in its own location.
func DayOrdinal(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// String renders YYYY-MM-DD or the unspecified marker.
func (d CaseDate) String() string {
	if d.IsZero() {
		return Unspecified
	}
	return d.Format(DateLayout)
}

func (d CaseDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CaseDate) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" || raw == Unspecified {
		*d = CaseDate{}
		return nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*d = NewCaseDate(t)
	return nil
}

// RawCase is a row as returned by the store, keyed by column name. Historical rows
// may carry camelCase or snake_case keys for the same field.
type RawCase map[string]any

// CaseRecord is the canonical case shape every consumer sees.
type CaseRecord struct {
	ID          string    `json:"id"`
	RescuerName string    `json:"rescuerName"`
	RescuerRank string    `json:"rescuerRank"`
	Trainer     string    `json:"trainer"`
	CaseCode    Severity  `json:"caseCode"`
	Date        CaseDate  `json:"date"`
	CaseDetails string    `json:"caseDetails"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewCase is the row written on form submission.
type NewCase struct {
	ID          string    `db:"case_unique_id"`
	RescuerName string    `db:"rescuer_name"`
	RescuerRank string    `db:"rescuer_rank"`
	Trainer     string    `db:"trainer"`
	Date        string    `db:"date"`
	CaseCode    string    `db:"case_code"`
	CaseDetails string    `db:"case_details"`
	CreatedAt   time.Time `db:"created_at"`
}

// CaseForm holds the submission form state.
type CaseForm struct {
	RescuerName string   `json:"rescuerName" validate:"required"`
	RescuerRank string   `json:"rescuerRank" validate:"required,rank"`
	Trainer     string   `json:"trainer" validate:"required,trainer"`
	Date        CaseDate `json:"date" swaggertype:"string" example:"2024-03-01"`
	CaseCode    string   `json:"caseCode" validate:"required,severity"`
	CaseDetails string   `json:"caseDetails" validate:"required"`
}

// SortKey selects the ordering field of the filtered view.
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByRescuerName SortKey = "rescuerName"
)

// SortDirection flips the comparison polarity.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterCriteria is the dashboard's transient filter state. Empty fields match all.
type FilterCriteria struct {
	Severity      string        `form:"severity" json:"severity,omitempty"`
	DateFrom      time.Time     `form:"dateFrom" time_format:"2006-01-02" time_utc:"1" json:"dateFrom,omitempty"`
	DateTo        time.Time     `form:"dateTo" time_format:"2006-01-02" time_utc:"1" json:"dateTo,omitempty"`
	RescuerName   string        `form:"rescuerName" json:"rescuerName,omitempty"`
	RescuerRank   string        `form:"rescuerRank" json:"rescuerRank,omitempty"`
	Trainer       string        `form:"trainer" json:"trainer,omitempty"`
	SortBy        SortKey       `form:"sortBy" json:"sortBy,omitempty" validate:"omitempty,oneof=date rescuerName"`
	SortDirection SortDirection `form:"sortDirection" json:"sortDirection,omitempty" validate:"omitempty,oneof=asc desc"`
}

// CaseMetrics counts the filtered view per canonical severity.
type CaseMetrics struct {
	Total  int `json:"total"`
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
}

// ReferenceData feeds the submission form's pickers.
type ReferenceData struct {
	Ranks      []string   `json:"ranks"`
	Trainers   []string   `json:"trainers"`
	Severities []Severity `json:"severities"`
}
