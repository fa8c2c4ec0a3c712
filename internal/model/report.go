package model

// RunReport summarizes one dataset generation run.
type RunReport struct {
	Target        int            // requested number of stored samples
	Stored        int            // successes written to the dataset
	FailedByStage map[string]int // skipped samples, keyed by failing stage
	Degraded      bool           // failure rate exceeded the configured threshold
}

// Failed returns the total number of skipped samples.
func (r RunReport) Failed() int {
	n := 0
	for _, c := range r.FailedByStage {
		n += c
	}
	return n
}

// FailureRate returns failed/(failed+stored), or 0 for an empty run.
func (r RunReport) FailureRate() float64 {
	total := r.Stored + r.Failed()
	if total == 0 {
		return 0
	}
	return float64(r.Failed()) / float64(total)
}
