package conversation

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes the transcript as one JSON object per line.
func (e *Engine) ExportJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, t := range e.Transcript() {
		record := map[string]any{
			"index":   i,
			"speaker": t.Speaker,
			"text":    t.Text,
		}
		if t.Speaker == SpeakerAssistant {
			citations := t.Citations
			if citations == nil {
				citations = []Citation{}
			}
			record["citations"] = citations
			if t.Failed {
				record["failed"] = true
			}
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("writing turn %d: %w", i, err)
		}
	}
	return nil
}
