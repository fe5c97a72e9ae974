// Package validation checks derived attachment filenames and their destinations
// before anything is written to disk.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFilenameLength is the longest filename accepted, in bytes. Most filesystems cap at 255.
const MaxFilenameLength = 255

// windowsReserved are device names that cannot be used as a file base name on Windows.
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateFilename validates a filename (not a full path) derived from a
// server-provided header before it is joined onto the download folder.
//
// Returns an error if the filename:
//   - Is empty, "." or ".."
//   - Contains path separators (/ or \)
//   - Contains null bytes or other control characters
//   - Is longer than MaxFilenameLength bytes
//   - Uses a reserved Windows device name as its base name
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("filename cannot be %q", filename)
	}

	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	for _, r := range filename {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("filename contains control character %U: %q", r, filename)
		}
	}

	if len(filename) > MaxFilenameLength {
		return fmt.Errorf("filename exceeds %d bytes: %s", MaxFilenameLength, filename)
	}

	base := strings.ToUpper(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if windowsReserved[base] {
		return fmt.Errorf("filename uses reserved device name: %s", filename)
	}

	return nil
}

// ValidatePathInDirectory validates that a path, when resolved, stays within baseDir.
//
// Both path and baseDir are cleaned and made absolute before comparison.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "downloads") // Error: escapes base dir
//	ValidatePathInDirectory("12_report.pdf", "downloads")    // OK
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolvedPath := filepath.Clean(path)
	if !filepath.IsAbs(resolvedPath) {
		resolvedPath = filepath.Join(cleanBase, resolvedPath)
	}

	relPath, err := filepath.Rel(cleanBase, resolvedPath)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}

	if strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || relPath == ".." {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}

	return nil
}

// AttachmentPath validates filename and returns its destination inside dir.
func AttachmentPath(dir, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := ValidatePathInDirectory(filename, dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}
