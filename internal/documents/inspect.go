package documents

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// FileInfo is local metadata gathered before a file is uploaded.
type FileInfo struct {
	Name  string
	MIME  string
	Size  int64
	Pages int // 0 when not a PDF or unreadable
}

// IsPDF reports whether the detected content type is PDF.
func (i FileInfo) IsPDF() bool {
	return i.MIME == "application/pdf"
}

// Inspect reads the file and reports its content type and, for PDFs, page count.
// An unparsable PDF is not an error; the backend decides what it accepts.
func Inspect(f FileHandle) (FileInfo, error) {
	rc, err := f.Open()
	if err != nil {
		return FileInfo{}, fmt.Errorf("opening %s: %w", f.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading %s: %w", f.Name(), err)
	}

	mt := mimetype.Detect(data)
	info := FileInfo{
		Name: f.Name(),
		MIME: mt.String(),
		Size: int64(len(data)),
	}
	if mt.Is("application/pdf") {
		info.MIME = "application/pdf"
		info.Pages = pageCount(data)
	}
	return info, nil
}

func pageCount(data []byte) (n int) {
	defer func() {
		// ledongthuc/pdf panics on some malformed trailers.
		if recover() != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
