// Package references holds the latest answer's citations and formats them
// for display next to the conversation.
package references

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kalambet/docqa/internal/conversation"
)

// EmptyMessage is shown when the latest answer cites nothing.
const EmptyMessage = "No relevant references."

// ExcerptLimit is the number of runes of an excerpt shown before truncation.
const ExcerptLimit = 80

// Item is one display-ready reference.
type Item struct {
	Label   string
	Excerpt string
}

// Panel is the default citation observer. Every notification replaces the
// previous list, including an empty one.
type Panel struct {
	mu        sync.RWMutex
	citations []conversation.Citation
	version   int
}

// NewPanel returns an empty Panel.
func NewPanel() *Panel {
	return &Panel{citations: []conversation.Citation{}}
}

// CitationsChanged implements conversation.CitationObserver.
func (p *Panel) CitationsChanged(citations []conversation.Citation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.citations = append([]conversation.Citation{}, citations...)
	p.version++
}

// References returns a copy of the current citations.
func (p *Panel) References() []conversation.Citation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]conversation.Citation{}, p.citations...)
}

// Version increases with every notification. Hosts use it to tell whether
// the panel needs redrawing.
func (p *Panel) Version() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Items formats the current citations.
func (p *Panel) Items() []Item {
	cs := p.References()
	items := make([]Item, 0, len(cs))
	for _, c := range cs {
		items = append(items, Item{Label: Label(c), Excerpt: Truncate(c.Excerpt, ExcerptLimit)})
	}
	return items
}

// Render returns the panel as plain text.
func (p *Panel) Render() string {
	items := p.Items()
	if len(items) == 0 {
		return EmptyMessage
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s\n   %s", i+1, it.Label, it.Excerpt)
	}
	return b.String()
}

// Label renders a citation as "file (chunk #N)" with a one-based N.
func Label(c conversation.Citation) string {
	return fmt.Sprintf("%s (chunk #%d)", c.SourceFileName, c.ChunkIndex+1)
}

// Truncate shortens s to limit runes, appending "..." when anything was cut.
// Whitespace runs are collapsed first so multi-line chunks fit one line.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
