package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/docqa/internal/conversation"
	"github.com/kalambet/docqa/internal/documents"
	"github.com/kalambet/docqa/internal/references"
)

func renderTranscript(turns []conversation.Turn, s Styles, width int) string {
	if len(turns) == 0 {
		return s.Muted.Render("No questions yet. Upload documents with /upload, then ask away.")
	}
	wrap := lipgloss.NewStyle().Width(max(width, 20))

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case t.Speaker == conversation.SpeakerUser:
			b.WriteString(s.User.Render("You: "))
			b.WriteString(wrap.Render(t.Text))
		case t.Failed:
			b.WriteString(s.Error.Render(t.Text))
		default:
			b.WriteString(s.Assistant.Render("Assistant: "))
			b.WriteString(wrap.Render(t.Text))
			if n := len(t.Citations); n > 0 {
				b.WriteString("\n")
				b.WriteString(s.Muted.Render(fmt.Sprintf("(%d reference(s))", n)))
			}
		}
	}
	return b.String()
}

func renderReferences(items []references.Item, s Styles, width int) string {
	if len(items) == 0 {
		return s.Muted.Render(references.EmptyMessage)
	}
	wrap := lipgloss.NewStyle().Width(max(width, 10))
	parts := make([]string, 0, len(items))
	for i, it := range items {
		parts = append(parts, fmt.Sprintf("%d. %s\n%s", i+1, it.Label, wrap.Render(s.Muted.Render(it.Excerpt))))
	}
	return strings.Join(parts, "\n\n")
}

func documentList(docs []documents.Document) string {
	if len(docs) == 0 {
		return "No documents uploaded in this session."
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("%s (%s)", d.FileName, d.FileID))
	}
	return "Documents: " + strings.Join(parts, ", ")
}

func uploadNotice(r documents.BatchResult) string {
	msg := r.Message()
	var failed []string
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o.FileName)
		}
	}
	if len(failed) > 0 {
		msg += " Failed: " + strings.Join(failed, ", ")
	}
	return msg
}
