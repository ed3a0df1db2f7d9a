package conversation

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Citation points from an answer to the document chunk that supports it.
// Excerpt always holds the full chunk text.
type Citation struct {
	SourceFileName string `json:"source_file_name"`
	ChunkIndex     int    `json:"chunk_index"`
	Excerpt        string `json:"excerpt"`
}

// Turn is one transcript entry. Citations is only set on assistant turns
// and is an empty, non-nil slice when the answer cites nothing.
// Failed marks the assistant turn appended in place of an answer.
type Turn struct {
	Speaker   Speaker
	Text      string
	Citations []Citation
	Failed    bool
}

func (t Turn) clone() Turn {
	if t.Citations != nil {
		t.Citations = append([]Citation{}, t.Citations...)
	}
	return t
}

// CitationObserver receives the citation list of every new assistant turn.
// An empty list means "no supporting sources" and replaces what was shown.
type CitationObserver interface {
	CitationsChanged(citations []Citation)
}

// ObserverFunc adapts a function to CitationObserver.
type ObserverFunc func([]Citation)

func (f ObserverFunc) CitationsChanged(citations []Citation) { f(citations) }

// Observers fans a notification out to several observers in order.
type Observers []CitationObserver

func (o Observers) CitationsChanged(citations []Citation) {
	for _, obs := range o {
		obs.CitationsChanged(append([]Citation{}, citations...))
	}
}
