package forwarder

// ProgressPhase represents the current forwarding phase
type ProgressPhase string

const (
	PhaseFetching ProgressPhase = "fetching"
	PhaseSending  ProgressPhase = "sending"
)

// Progress represents the current run progress
type Progress struct {
	Phase       ProgressPhase
	Current     int // Current item being processed
	Total       int // Total items in this phase, 0 when unknown
	Description string
}

// ProgressCallback is called with progress updates during a run
type ProgressCallback func(Progress)

// Percentage returns the completion percentage (0-100)
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}
