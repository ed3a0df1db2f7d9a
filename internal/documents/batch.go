package documents

import "fmt"

// BatchStatus is the aggregate outcome of one upload run.
type BatchStatus int

const (
	// BatchEmpty means nothing was selected.
	BatchEmpty BatchStatus = iota
	BatchAllSucceeded
	BatchPartial
	BatchAllFailed
)

func (s BatchStatus) String() string {
	switch s {
	case BatchAllSucceeded:
		return "all succeeded"
	case BatchPartial:
		return "partial"
	case BatchAllFailed:
		return "all failed"
	default:
		return "empty"
	}
}

// Outcome is the result of uploading one file. Err is nil on success.
type Outcome struct {
	FileName string
	Document Document
	Err      error
}

// OK reports whether the upload succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// BatchResult summarizes one UploadSelected call in selection order.
type BatchResult struct {
	Outcomes []Outcome
	Status   BatchStatus
}

// Succeeded counts successful uploads.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes.
func (r BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Message is the user-facing status line for the batch.
func (r BatchResult) Message() string {
	switch r.Status {
	case BatchAllSucceeded:
		return "All files uploaded successfully!"
	case BatchPartial:
		return fmt.Sprintf("Uploaded %d of %d files; %d failed.", r.Succeeded(), len(r.Outcomes), len(r.Outcomes)-r.Succeeded())
	case BatchAllFailed:
		return "Upload failed for every file."
	default:
		return ""
	}
}

func aggregate(outcomes []Outcome) BatchStatus {
	if len(outcomes) == 0 {
		return BatchEmpty
	}
	ok := 0
	for _, o := range outcomes {
		if o.OK() {
			ok++
		}
	}
	switch ok {
	case len(outcomes):
		return BatchAllSucceeded
	case 0:
		return BatchAllFailed
	default:
		return BatchPartial
	}
}
