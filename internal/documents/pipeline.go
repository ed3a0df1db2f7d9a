package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kalambet/docqa/internal/backend"
	"github.com/kalambet/docqa/internal/metrics"
)

var (
	// ErrUnknownDocument is returned when deleting a file id that is not registered.
	// It also matches backend.ErrRequestFailed so callers handle one failure kind.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrBatchInProgress is returned when UploadSelected is called while a batch is running.
	ErrBatchInProgress = errors.New("upload batch already in progress")
)

// Document is a file the backend has accepted.
type Document struct {
	FileName       string `json:"file_name"`
	FileID         string `json:"file_id"`
	PreviewSnippet string `json:"preview,omitempty"`
}

// Backend is the subset of backend.Client the pipeline needs.
type Backend interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (backend.UploadResponse, error)
	Delete(ctx context.Context, docID string) error
	DownloadURL(docID, fileName string) string
}

// ProgressFunc is called after each file of a batch, in selection order.
type ProgressFunc func(index, total int, outcome Outcome)

// Pipeline uploads user-selected files one at a time and owns the document registry.
type Pipeline struct {
	backend    Backend
	logger     *slog.Logger
	onProgress ProgressFunc

	mu         sync.Mutex
	pending    []FileHandle
	registry   *orderedmap.OrderedMap[string, Document]
	inProgress bool
	status     string
}

// NewPipeline creates a Pipeline with an empty registry.
func NewPipeline(b Backend) *Pipeline {
	return &Pipeline{
		backend:  b,
		logger:   slog.Default(),
		registry: orderedmap.New[string, Document](),
	}
}

// OnProgress registers a per-file progress callback. Pass nil to remove it.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress = fn
}

// SelectFiles replaces the pending selection.
func (p *Pipeline) SelectFiles(files []FileHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append([]FileHandle(nil), files...)
}

// Pending returns a copy of the pending selection.
func (p *Pipeline) Pending() []FileHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FileHandle(nil), p.pending...)
}

// CanUpload reports whether the upload action should be enabled.
func (p *Pipeline) CanUpload() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0 && !p.inProgress
}

// InProgress reports whether an UploadSelected call is running.
func (p *Pipeline) InProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inProgress
}

// Status returns the last status message.
func (p *Pipeline) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Documents returns the registry contents in insertion order.
func (p *Pipeline) Documents() []Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	docs := make([]Document, 0, p.registry.Len())
	for pair := p.registry.Oldest(); pair != nil; pair = pair.Next() {
		docs = append(docs, pair.Value)
	}
	return docs
}

// Document looks up a registered document by file id.
func (p *Pipeline) Document(fileID string) (Document, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry.Get(fileID)
}

// Preview returns the preview snippet of a registered document.
func (p *Pipeline) Preview(fileID string) string {
	doc, _ := p.Document(fileID)
	return doc.PreviewSnippet
}

// Adopt registers a document uploaded in an earlier session so it can be
// managed (deleted, linked) through this pipeline.
func (p *Pipeline) Adopt(doc Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registry.Set(doc.FileID, doc)
}

// UploadSelected uploads every pending file in selection order, one request at
// a time. A failed file is recorded and the batch continues. The pending
// selection is cleared afterwards whatever the outcome.
func (p *Pipeline) UploadSelected(ctx context.Context) (BatchResult, error) {
	p.mu.Lock()
	if p.inProgress {
		p.mu.Unlock()
		return BatchResult{}, ErrBatchInProgress
	}
	files := p.pending
	if len(files) == 0 {
		p.mu.Unlock()
		return BatchResult{}, nil
	}
	p.inProgress = true
	p.status = ""
	onProgress := p.onProgress
	p.mu.Unlock()

	result := BatchResult{Outcomes: make([]Outcome, 0, len(files))}
	for i, f := range files {
		outcome := p.uploadOne(ctx, f)
		result.Outcomes = append(result.Outcomes, outcome)
		if onProgress != nil {
			onProgress(i, len(files), outcome)
		}
	}
	result.Status = aggregate(result.Outcomes)

	p.mu.Lock()
	p.inProgress = false
	p.pending = nil
	p.status = result.Message()
	p.mu.Unlock()

	p.logger.Info("upload batch finished",
		"files", len(files),
		"succeeded", result.Succeeded(),
		"status", result.Status.String(),
	)
	return result, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, f FileHandle) Outcome {
	name := f.Name()
	rc, err := f.Open()
	if err != nil {
		metrics.CaptureUpload(metrics.OutcomeFailed)
		p.logger.Warn("upload failed", "file", name, "error", err)
		return Outcome{FileName: name, Err: fmt.Errorf("opening %s: %w", name, err)}
	}
	defer rc.Close()

	resp, err := p.backend.Upload(ctx, name, rc)
	if err != nil {
		metrics.CaptureUpload(metrics.OutcomeFailed)
		p.logger.Warn("upload failed", "file", name, "error", err)
		return Outcome{FileName: name, Err: err}
	}

	doc := Document{
		FileName:       name,
		FileID:         resp.FileID,
		PreviewSnippet: resp.Preview,
	}

	p.mu.Lock()
	if _, present := p.registry.Set(doc.FileID, doc); present {
		p.logger.Warn("backend reused a file id", "file_id", doc.FileID, "file", name)
	}
	p.mu.Unlock()

	metrics.CaptureUpload(metrics.OutcomeOK)
	p.logger.Debug("uploaded", "file", name, "file_id", doc.FileID)
	return Outcome{FileName: name, Document: doc}
}

// DeleteDocument deletes a registered document. On failure the registry is
// left untouched and the error matches backend.ErrRequestFailed.
func (p *Pipeline) DeleteDocument(ctx context.Context, fileID string) error {
	p.mu.Lock()
	doc, ok := p.registry.Get(fileID)
	if !ok {
		p.status = fmt.Sprintf("Delete failed: no document with id %s.", fileID)
		p.mu.Unlock()
		return &backend.RequestFailedError{
			Op:          backend.OpDelete,
			Description: fmt.Sprintf("no document with id %s", fileID),
			Err:         ErrUnknownDocument,
		}
	}
	p.mu.Unlock()

	if err := p.backend.Delete(ctx, fileID); err != nil {
		p.logger.Warn("delete failed", "file_id", fileID, "error", err)
		p.setStatus(fmt.Sprintf("Delete failed for %s.", doc.FileName))
		if !errors.Is(err, backend.ErrRequestFailed) {
			err = &backend.RequestFailedError{Op: backend.OpDelete, Description: err.Error(), Err: err}
		}
		return err
	}

	p.mu.Lock()
	p.registry.Delete(fileID)
	p.status = fmt.Sprintf("Deleted %s.", doc.FileName)
	p.mu.Unlock()
	return nil
}

// DownloadLink returns the retrieval URL for a document. It has no side effects.
func (p *Pipeline) DownloadLink(fileID, fileName string) string {
	return p.backend.DownloadURL(fileID, fileName)
}

func (p *Pipeline) setStatus(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}
