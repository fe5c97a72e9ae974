// Package attachments downloads the attachment of each record with a bounded
// worker pool and aggregates the resulting local filenames by record id.
package attachments

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/qbfetch/qbfetch/internal/constants"
)

const filenameToken = "filename="

// illegalChars are replaced by '_' in derived filenames.
var illegalChars = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// DeriveFilename returns the local filename for a record's attachment.
//
// With a filename= token in contentDisposition the result is
// "<recordID>_<original>"; otherwise it is "record_<recordID>_file".
// The name is then sanitized, and ".pdf" is appended when it has no extension.
// The record id prefix makes names unique across the records of one run.
func DeriveFilename(recordID, contentDisposition string) string {
	name := "record_" + recordID + "_file"
	if original, ok := dispositionFilename(contentDisposition); ok {
		name = recordID + "_" + original
	}

	name = SanitizeFilename(name)
	if filepath.Ext(name) == "" {
		name += constants.DefaultAttachmentExt
	}
	return name
}

// dispositionFilename extracts the value following the first "filename=".
// A quoted value ends at its closing quote, a bare value at the next ';'.
func dispositionFilename(header string) (string, bool) {
	idx := strings.Index(header, filenameToken)
	if idx < 0 {
		return "", false
	}
	value := strings.TrimSpace(header[idx+len(filenameToken):])

	if strings.HasPrefix(value, `"`) {
		if end := strings.Index(value[1:], `"`); end >= 0 {
			value = value[1 : end+1]
		}
	} else if end := strings.IndexByte(value, ';'); end >= 0 {
		value = value[:end]
	}

	return strings.Trim(strings.TrimSpace(value), `"`), true
}

// SanitizeFilename replaces \ / * ? : " < > | and control characters with '_'.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, illegalChars.Replace(name))
}
