package core

import "time"

// ColumnStatistics holds warehouse-observed facts about one column.
// Any field may be absent when the corresponding query failed; partial
// statistics are acceptable.
type ColumnStatistics struct {
	Name     string
	Type     string
	Nullable bool

	// DistinctCount is -1 when the aggregate query failed for this column.
	DistinctCount int64
	// NullPercent is the percentage of NULL values, 0-100.
	NullPercent float64
	// Min and Max are set only for numeric and temporal columns.
	Min string
	Max string
	// SampleValues holds up to five values ordered by frequency.
	SampleValues []string
}

// TimeRange is the observed span of the first temporal column in a table.
type TimeRange struct {
	Column string
	From   time.Time
	To     time.Time
}

// TableStatisticsProfile holds warehouse-observed facts about one table.
// Profiles are rebuilt every pass and fully replaced, never partially mutated.
type TableStatisticsProfile struct {
	Schema    string
	Table     string
	RowCount  int64
	SizeBytes int64
	Columns   []ColumnStatistics
	TimeRange *TimeRange
}

// Ref returns the table identifier for this profile.
func (p *TableStatisticsProfile) Ref() TableRef {
	return TableRef{Schema: p.Schema, Table: p.Table}
}

// ProfileError is a structured error recorded for one model during a run.
type ProfileError struct {
	Model        string
	Stage        string
	Message      string
	FallbackUsed bool
}

func (e *ProfileError) Error() string {
	return e.Model + ": " + e.Stage + ": " + e.Message
}

// ProfileResult is the outcome of one enrichment attempt for one model.
type ProfileResult struct {
	Model    string
	Success  bool
	Duration time.Duration
	// Content is the generated artifact text. It is always non-empty:
	// fallback generation guarantees output even when enrichment fails.
	Content string
	Err     *ProfileError
}

// ProfileSummary aggregates the outcome of one orchestrator invocation.
type ProfileSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Fallbacks int
	Failed    int
	Skipped   int
	CostUSD   float64
	Duration  time.Duration
	Errors    []ProfileError
}

// Record folds one result into the summary.
func (s *ProfileSummary) Record(r ProfileResult) {
	s.Total++
	s.Duration += r.Duration
	switch {
	case r.Success:
		s.Succeeded++
	case r.Err != nil && r.Err.FallbackUsed:
		s.Fallbacks++
	default:
		s.Failed++
	}
	if r.Err != nil {
		s.Errors = append(s.Errors, *r.Err)
	}
}
