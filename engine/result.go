package engine

import "fmt"

// Status classifies the outcome for one DOI.
type Status int

const (
	StatusUpdated Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is the result for a single DOI.
type Outcome struct {
	DOI     string
	Status  Status
	Message string

	// Inconsistent marks a failure after the database was already written.
	Inconsistent bool
}

// SkipDetail records why a DOI needed no write.
type SkipDetail struct {
	DOI    string
	Reason string
}

// BatchResult aggregates the outcomes of one run in input order.
type BatchResult struct {
	// Kind names the update variant, e.g. "URL" or "Creators"
	Kind string

	SuccessCount int
	SkippedCount int
	ErrorCount   int

	// Errors holds "<doi>: <message>" entries
	Errors []string

	Skipped  []SkipDetail
	Outcomes []Outcome

	// Warnings are non-fatal notes such as DOIs missing from the database
	Warnings []string

	DryRun    bool
	Cancelled bool
}

// Record appends o. Skips count towards SuccessCount as well, since the
// desired state is already reached.
func (r *BatchResult) Record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusUpdated:
		r.SuccessCount++
	case StatusSkipped:
		r.SuccessCount++
		r.SkippedCount++
		r.Skipped = append(r.Skipped, SkipDetail{DOI: o.DOI, Reason: o.Message})
	case StatusFailed:
		r.ErrorCount++
		r.Errors = append(r.Errors, o.DOI+": "+o.Message)
	}
}

// Total is the number of processed DOIs.
func (r *BatchResult) Total() int { return len(r.Outcomes) }

// UpdatedCount is the number of DOIs actually written.
func (r *BatchResult) UpdatedCount() int { return r.SuccessCount - r.SkippedCount }

// Efficiency is the share of processed DOIs that needed no API write, in
// percent.
func (r *BatchResult) Efficiency() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.SkippedCount) / float64(r.Total()) * 100
}

// Inconsistencies returns the DOIs whose database and DataCite state
// diverged.
func (r *BatchResult) Inconsistencies() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Inconsistent {
			out = append(out, o.DOI)
		}
	}
	return out
}
