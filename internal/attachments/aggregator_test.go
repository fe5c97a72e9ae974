package attachments

import (
	"strconv"
	"sync"
	"testing"

	"github.com/qbfetch/qbfetch/internal/models"
)

func TestAggregator_ConcurrentPublish(t *testing.T) {
	const n = 200
	agg := NewAggregator(0)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			res := models.AttachmentResult{RecordID: strconv.Itoa(id)}
			if id%2 == 0 {
				res.LocalFilename = strconv.Itoa(id) + "_f.pdf"
			}
			agg.Publish(res)
		}(i)
	}
	wg.Wait()

	results := agg.Wait()
	if results.Len() != n {
		t.Fatalf("Len() = %d, want %d", results.Len(), n)
	}
	if results.Succeeded() != n/2 || results.Failed() != n/2 {
		t.Errorf("Succeeded() = %d, Failed() = %d", results.Succeeded(), results.Failed())
	}
	if got := results.Filename("42"); got != "42_f.pdf" {
		t.Errorf("Filename(42) = %q", got)
	}
	if got := results.Filename("43"); got != "" {
		t.Errorf("Filename(43) = %q, want empty", got)
	}
	if got := results.Filename("missing"); got != "" {
		t.Errorf("Filename(missing) = %q, want empty", got)
	}
	if len(results.Outcomes()) != n {
		t.Errorf("Outcomes() has %d entries", len(results.Outcomes()))
	}
}

func TestResults_NilFilename(t *testing.T) {
	var r *Results
	if r.Filename("1") != "" {
		t.Error("nil Results should return empty filename")
	}
}
