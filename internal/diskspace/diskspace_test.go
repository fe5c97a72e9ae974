package diskspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	dir := t.TempDir()

	t.Run("SmallFile", func(t *testing.T) {
		if err := CheckAvailableSpace(dir, 1024, 1.1); err != nil {
			t.Errorf("Expected no error for small file, got: %v", err)
		}
	})

	t.Run("VeryLargeFile", func(t *testing.T) {
		if _, ok := availableBytes(dir); !ok {
			t.Skip("Could not determine available space")
		}
		// 100 PB
		err := CheckAvailableSpace(dir, 100*1024*1024*1024*1024*1024, 1.1)
		if !IsInsufficientSpaceError(err) {
			t.Errorf("Expected InsufficientSpaceError, got: %v", err)
		}
	})

	t.Run("MissingDir", func(t *testing.T) {
		if err := CheckAvailableSpace(filepath.Join(dir, "nope"), 1<<62, 1); err != nil {
			t.Errorf("unknown free space should not block writes, got: %v", err)
		}
	})
}

func TestIsInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Dir: "downloads", RequiredBytes: 1000, AvailableBytes: 500}
	if !IsInsufficientSpaceError(err) {
		t.Error("Expected IsInsufficientSpaceError to return true")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("write 1_A.pdf: %w", err)) {
		t.Error("wrapped error should be recognized")
	}
	if IsInsufficientSpaceError(fmt.Errorf("some other error")) {
		t.Error("Expected false for non-disk-space error")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("Expected false for nil")
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Dir:            "downloads",
		RequiredBytes:  1024 * 1024 * 100, // 100MB
		AvailableBytes: 1024 * 1024 * 50,  // 50MB
	}

	msg := err.Error()
	for _, want := range []string{"downloads", "100.00", "50.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message %q should contain %q", msg, want)
		}
	}
}
