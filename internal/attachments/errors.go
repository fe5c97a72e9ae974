package attachments

import (
	"fmt"
)

// AttachmentError is a soft failure of one attachment download: a transport
// error, a non-2xx status, an undecodable body or a failed write.
// It is logged and recorded as an empty filename; the run continues.
type AttachmentError struct {
	RecordID   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *AttachmentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("attachment for record %s: HTTP %d: %v", e.RecordID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("attachment for record %s: %v", e.RecordID, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}
