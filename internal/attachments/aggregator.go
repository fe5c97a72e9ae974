package attachments

import (
	"github.com/qbfetch/qbfetch/internal/models"
)

// Aggregator collects completed downloads. Workers publish results onto a
// channel; a single goroutine owns the map, so no insert ever races.
type Aggregator struct {
	completions chan models.AttachmentResult
	done        chan struct{}
	results     *Results
}

// NewAggregator starts the collecting goroutine. expected sizes the buffers.
func NewAggregator(expected int) *Aggregator {
	a := &Aggregator{
		completions: make(chan models.AttachmentResult, expected),
		done:        make(chan struct{}),
		results: &Results{
			files:    make(map[string]string, expected),
			outcomes: make([]models.AttachmentResult, 0, expected),
		},
	}
	go a.collect()
	return a
}

func (a *Aggregator) collect() {
	defer close(a.done)
	for res := range a.completions {
		a.results.files[res.RecordID] = res.LocalFilename
		a.results.outcomes = append(a.results.outcomes, res)
	}
}

// Publish hands one completion to the aggregator. Safe for concurrent use.
func (a *Aggregator) Publish(res models.AttachmentResult) {
	a.completions <- res
}

// Wait closes the completion channel and returns the frozen results.
// It must be called once, after every Publish has returned.
func (a *Aggregator) Wait() *Results {
	close(a.completions)
	<-a.done
	return a.results
}

// Results is the frozen record id -> local filename mapping of a run.
type Results struct {
	files    map[string]string
	outcomes []models.AttachmentResult

	// Skipped counts tasks never dispatched because the run was interrupted.
	Skipped int
}

// Filename returns the local filename for a record, or "" when the record had
// no task or its download failed.
func (r *Results) Filename(recordID string) string {
	if r == nil {
		return ""
	}
	return r.files[recordID]
}

// Len returns the number of completed tasks.
func (r *Results) Len() int {
	return len(r.files)
}

// Outcomes returns every completion in the order it was received.
func (r *Results) Outcomes() []models.AttachmentResult {
	out := make([]models.AttachmentResult, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Succeeded returns the number of attachments written to disk.
func (r *Results) Succeeded() int {
	n := 0
	for _, res := range r.outcomes {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of attempted downloads that produced no file.
func (r *Results) Failed() int {
	return len(r.outcomes) - r.Succeeded()
}
