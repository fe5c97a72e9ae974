package progress

import (
	"os"
	"testing"
)

func TestAttachmentUI_NonTerminal(t *testing.T) {
	u := newAttachmentUI(3, os.Stderr, false)

	u.Complete(true)
	u.Complete(false)
	u.Complete(true)
	u.Wait()

	if u.Completed() != 3 {
		t.Errorf("Completed() = %d, want 3", u.Completed())
	}
	if u.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", u.Failed())
	}
	if u.IsTerminal() {
		t.Error("IsTerminal() should be false")
	}
	if u.Writer() != os.Stdout {
		t.Error("Writer() should fall back to stdout off a terminal")
	}
}

func TestAttachmentUI_WaitWithUndispatchedTasks(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bar")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	defer f.Close()

	u := newAttachmentUI(5, f, true)
	u.Complete(true)
	u.Complete(true)

	// Must return even though only 2 of 5 tasks ran
	u.Wait()

	if u.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", u.Completed())
	}
}

func TestNoOpProgress(t *testing.T) {
	var r Reporter = NewNoOpProgress()
	r.Start("Querying records")
	r.Error(nil)
	r.Finish()
}
