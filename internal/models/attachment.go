package models

// AttachmentTask is one attachment to fetch. SourceURL is the files endpoint path for
// the record's attachment field, relative to the API base URL.
type AttachmentTask struct {
	RecordID  string
	SourceURL string
}

// AttachmentResult is the outcome of one AttachmentTask.
// An empty LocalFilename means the download failed or produced nothing.
type AttachmentResult struct {
	RecordID      string
	LocalFilename string
	Size          int64
	SHA256        string
	Err           error
}

// Succeeded reports whether the attachment was written to disk.
func (r AttachmentResult) Succeeded() bool {
	return r.LocalFilename != ""
}
