package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qbfetch/qbfetch/internal/api"
	"github.com/qbfetch/qbfetch/internal/models"
)

// fakeFetcher serves canned responses keyed by path and tracks concurrency.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*api.FileResponse
	errs      map[string]error
	delay     time.Duration
	calls     map[string]int

	inFlight    int32
	maxInFlight int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]*api.FileResponse),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) serve(path, filename string, payload []byte) {
	f.responses[path] = &api.FileResponse{
		StatusCode:         200,
		ContentDisposition: `attachment; filename="` + filename + `"`,
		Body:               []byte(base64.StdEncoding.EncodeToString(payload)),
	}
}

func (f *fakeFetcher) GetFile(ctx context.Context, path string) (*api.FileResponse, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[path]++
	f.mu.Unlock()

	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if resp, ok := f.responses[path]; ok {
		return resp, nil
	}
	return &api.FileResponse{StatusCode: 404, Body: []byte("not found")}, nil
}

func task(id string) models.AttachmentTask {
	return models.AttachmentTask{RecordID: id, SourceURL: api.FilePath("bqabc", id, 7)}
}

func TestDownloader_SuccessAndSoftFailures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	fetcher := newFakeFetcher()
	fetcher.serve(task("1").SourceURL, "A.pdf", []byte("first"))
	fetcher.responses[task("2").SourceURL] = &api.FileResponse{StatusCode: 200, Body: []byte("%%% corrupt %%%")}
	fetcher.errs[task("3").SourceURL] = errors.New("connection reset by peer")
	fetcher.serve(task("5").SourceURL, "E.png", []byte("fifth"))
	// record 4 has no canned response and gets a 404

	var completed int32
	d := NewDownloader(fetcher, Options{
		Workers:        2,
		DownloadFolder: dir,
		OnComplete:     func(models.AttachmentResult) { atomic.AddInt32(&completed, 1) },
	})

	results, err := d.Run(context.Background(), []models.AttachmentTask{task("1"), task("2"), task("3"), task("4"), task("5")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if results.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", results.Len())
	}
	if results.Succeeded() != 2 || results.Failed() != 3 {
		t.Errorf("Succeeded() = %d, Failed() = %d", results.Succeeded(), results.Failed())
	}
	if got := results.Filename("1"); got != "1_A.pdf" {
		t.Errorf("Filename(1) = %q", got)
	}
	if got := results.Filename("5"); got != "5_E.png" {
		t.Errorf("Filename(5) = %q", got)
	}
	for _, id := range []string{"2", "3", "4"} {
		if got := results.Filename(id); got != "" {
			t.Errorf("Filename(%s) = %q, want empty", id, got)
		}
	}
	if atomic.LoadInt32(&completed) != 5 {
		t.Errorf("OnComplete called %d times, want 5", completed)
	}

	data, err := os.ReadFile(filepath.Join(dir, "1_A.pdf"))
	if err != nil || string(data) != "first" {
		t.Errorf("1_A.pdf = %q, %v", data, err)
	}

	for _, res := range results.Outcomes() {
		switch res.RecordID {
		case "1":
			if res.Size != 5 || len(res.SHA256) != 64 {
				t.Errorf("unexpected metadata for record 1: %+v", res)
			}
		case "4":
			var ae *AttachmentError
			if !errors.As(res.Err, &ae) || ae.StatusCode != 404 {
				t.Errorf("record 4 error = %v, want 404 AttachmentError", res.Err)
			}
		case "3":
			var ae *AttachmentError
			if !errors.As(res.Err, &ae) || ae.StatusCode != 0 {
				t.Errorf("record 3 error = %v, want transport AttachmentError", res.Err)
			}
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("download folder has %d entries, want 2", len(entries))
	}
}

func TestDownloader_AttemptsEachTaskOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs[task("1").SourceURL] = errors.New("timeout")

	d := NewDownloader(fetcher, Options{Workers: 3, DownloadFolder: t.TempDir()})
	if _, err := d.Run(context.Background(), []models.AttachmentTask{task("1"), task("2")}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for path, n := range fetcher.calls {
		if n != 1 {
			t.Errorf("%s fetched %d times, want 1", path, n)
		}
	}
}

func TestDownloader_BoundedConcurrency(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.delay = 20 * time.Millisecond

	var tasks []models.AttachmentTask
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		fetcher.serve(task(id).SourceURL, "f.txt", []byte(id))
		tasks = append(tasks, task(id))
	}

	d := NewDownloader(fetcher, Options{Workers: 3, DownloadFolder: t.TempDir()})
	results, err := d.Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results.Succeeded() != 12 {
		t.Errorf("Succeeded() = %d, want 12", results.Succeeded())
	}
	if peak := atomic.LoadInt32(&fetcher.maxInFlight); peak > 3 {
		t.Errorf("max in flight = %d, want <= 3", peak)
	}
}

func TestDownloader_CancelStopsDispatch(t *testing.T) {
	fetcher := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(fetcher, Options{Workers: 1, DownloadFolder: t.TempDir()})
	results, err := d.Run(ctx, []models.AttachmentTask{task("1"), task("2")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results.Len() != 0 || results.Skipped != 2 {
		t.Errorf("Len() = %d, Skipped = %d; want 0, 2", results.Len(), results.Skipped)
	}
}

func TestDownloader_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1_A.pdf"), []byte("old contents"), 0644); err != nil {
		t.Fatal(err)
	}

	fetcher := newFakeFetcher()
	fetcher.serve(task("1").SourceURL, "A.pdf", []byte("new"))

	d := NewDownloader(fetcher, Options{DownloadFolder: dir})
	if _, err := d.Run(context.Background(), []models.AttachmentTask{task("1")}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "1_A.pdf"))
	if string(data) != "new" {
		t.Errorf("file contents = %q, want new", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "1_A.pdf.part")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestDownloader_ControlCharacterInFilename(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.serve(task("1").SourceURL, "Q1\treport.pdf", []byte("quarterly"))

	d := NewDownloader(fetcher, Options{DownloadFolder: dir})
	results, err := d.Run(context.Background(), []models.AttachmentTask{task("1")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := results.Filename("1"); got != "1_Q1_report.pdf" {
		t.Fatalf("Filename(1) = %q, want 1_Q1_report.pdf", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "1_Q1_report.pdf"))
	if err != nil || string(data) != "quarterly" {
		t.Errorf("attachment = %q, %v", data, err)
	}
}

func TestDownloader_UncreatableFolder(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDownloader(newFakeFetcher(), Options{DownloadFolder: filepath.Join(blocker, "downloads")})
	if _, err := d.Run(context.Background(), nil); err == nil {
		t.Error("expected error when the download folder cannot be created")
	}
}
