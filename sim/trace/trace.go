package trace

// ResultLog collects outcome and completion records during one experiment run.
// Append-only; not safe for concurrent use.
type ResultLog struct {
	outcomes    []OutcomeRecord
	completions []CompletionRecord
}

// NewResultLog creates a ResultLog ready for recording.
func NewResultLog() *ResultLog {
	return &ResultLog{
		outcomes:    make([]OutcomeRecord, 0),
		completions: make([]CompletionRecord, 0),
	}
}

// RecordOutcome appends a placement outcome.
func (l *ResultLog) RecordOutcome(record OutcomeRecord) {
	l.outcomes = append(l.outcomes, record)
}

// RecordCompletion appends a migration completion.
func (l *ResultLog) RecordCompletion(record CompletionRecord) {
	l.completions = append(l.completions, record)
}

// Outcomes returns a copy of the outcome records in recording order.
func (l *ResultLog) Outcomes() []OutcomeRecord {
	return append([]OutcomeRecord(nil), l.outcomes...)
}

// Completions returns a copy of the completion records in recording order.
func (l *ResultLog) Completions() []CompletionRecord {
	return append([]CompletionRecord(nil), l.completions...)
}
