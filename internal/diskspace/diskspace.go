// Package diskspace checks free space on the filesystem holding the download folder.
package diskspace

import (
	"errors"
	"fmt"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Dir            string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space in %s: need %.2f MB, have %.2f MB available",
		e.Dir, requiredMB, availableMB)
}

// CheckAvailableSpace returns an InsufficientSpaceError when dir's filesystem has
// less than requiredBytes*safetyMargin free. dir must exist.
// When free space cannot be determined (network or virtual filesystems) it returns nil
// and the write is left to fail on its own.
func CheckAvailableSpace(dir string, requiredBytes int64, safetyMargin float64) error {
	available, ok := availableBytes(dir)
	if !ok {
		return nil
	}

	required := int64(float64(requiredBytes) * safetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Dir:            dir,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// IsInsufficientSpaceError checks if err wraps an InsufficientSpaceError
func IsInsufficientSpaceError(err error) bool {
	var se *InsufficientSpaceError
	return errors.As(err, &se)
}
