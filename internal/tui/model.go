// Package tui is the interactive terminal host for a document Q&A session.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/docqa/internal/conversation"
	"github.com/kalambet/docqa/internal/documents"
	"github.com/kalambet/docqa/internal/references"
)

const helpText = "Commands: /upload <path>..., /docs, /delete <file-id>, /link <file-id>, /export <path>, /help. Ctrl+C quits."

// answerMsg carries the assistant turn appended for one question.
type answerMsg struct {
	turn conversation.Turn
}

type uploadDoneMsg struct {
	result documents.BatchResult
	err    error
}

type deleteDoneMsg struct {
	fileID string
	err    error
}

// Model is the bubbletea model for `docqa chat`.
type Model struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    Styles

	ctx      context.Context
	engine   *conversation.Engine
	pipeline *documents.Pipeline
	panel    *references.Panel

	notice    string
	uploading bool
	width     int
	height    int
}

// New builds a chat model. The panel must be the engine's citation observer
// (directly or through conversation.Observers).
func New(ctx context.Context, engine *conversation.Engine, pipeline *documents.Pipeline, panel *references.Panel, noColor bool) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents, or /help"
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 72

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		textinput: ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		styles:    DefaultStyles(noColor),
		ctx:       ctx,
		engine:    engine,
		pipeline:  pipeline,
		panel:     panel,
		notice:    helpText,
		width:     120,
		height:    30,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		}
		m.textinput, tiCmd = m.textinput.Update(msg)
		m.engine.SetInput(m.textinput.Value())

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.busy() {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}
		return m, nil

	case answerMsg:
		m.refresh()

	case uploadDoneMsg:
		m.uploading = false
		switch {
		case msg.err != nil:
			m.notice = "Upload not started: " + msg.err.Error()
		default:
			m.notice = uploadNotice(msg.result)
		}

	case deleteDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Delete failed: %v", msg.err)
		} else {
			m.notice = m.pipeline.Status()
		}
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := m.textinput.Value()
	if strings.HasPrefix(strings.TrimSpace(input), "/") {
		m.textinput.Reset()
		m.engine.SetInput("")
		return m.handleCommand(strings.TrimSpace(input))
	}

	p, ok := m.engine.Begin(input)
	if !ok {
		return m, nil
	}
	m.textinput.Reset()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.awaitAnswer(p))
}

func (m Model) awaitAnswer(p *conversation.Pending) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{turn: m.engine.Await(m.ctx, p)}
	}
}

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.notice = helpText

	case "/upload":
		if len(args) == 0 {
			m.notice = "Usage: /upload <path>..."
			return m, nil
		}
		if m.pipeline.InProgress() {
			m.notice = "An upload is already running."
			return m, nil
		}
		m.pipeline.SelectFiles(documents.LocalFiles(args))
		m.uploading = true
		m.notice = fmt.Sprintf("Uploading %d file(s)...", len(args))
		return m, tea.Batch(m.spinner.Tick, m.runUpload())

	case "/docs":
		m.notice = documentList(m.pipeline.Documents())

	case "/delete":
		if len(args) != 1 {
			m.notice = "Usage: /delete <file-id>"
			return m, nil
		}
		id := args[0]
		return m, func() tea.Msg {
			return deleteDoneMsg{fileID: id, err: m.pipeline.DeleteDocument(m.ctx, id)}
		}

	case "/link":
		if len(args) != 1 {
			m.notice = "Usage: /link <file-id>"
			return m, nil
		}
		doc, ok := m.pipeline.Document(args[0])
		if !ok {
			m.notice = fmt.Sprintf("No document with id %s.", args[0])
			return m, nil
		}
		m.notice = m.pipeline.DownloadLink(doc.FileID, doc.FileName)

	case "/export":
		if len(args) != 1 {
			m.notice = "Usage: /export <path>"
			return m, nil
		}
		if err := exportTranscript(m.engine, args[0]); err != nil {
			m.notice = fmt.Sprintf("Export failed: %v", err)
		} else {
			m.notice = fmt.Sprintf("Transcript written to %s.", args[0])
		}

	default:
		m.notice = fmt.Sprintf("Unknown command %s. %s", cmd, helpText)
	}
	return m, nil
}

func (m Model) runUpload() tea.Cmd {
	return func() tea.Msg {
		result, err := m.pipeline.UploadSelected(m.ctx)
		return uploadDoneMsg{result: result, err: err}
	}
}

func (m Model) busy() bool {
	return m.uploading || m.engine.InFlight()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	const chrome = 8
	refWidth := width / 3
	m.viewport.Width = max(width-refWidth-4, 20)
	m.viewport.Height = max(height-chrome, 5)
	m.textinput.Width = max(width-8, 10)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.engine.Transcript(), m.styles, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	header := m.styles.Header.Render("docqa")

	refWidth := max(m.width/3-4, 20)
	refs := m.styles.Pane.Width(refWidth).Height(m.viewport.Height).Render(
		m.styles.PaneTitle.Render("References") + "\n" + renderReferences(m.panel.Items(), m.styles, refWidth),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), refs)

	status := m.styles.Notice.Render(m.notice)
	if m.busy() {
		what := "Waiting for answer"
		if m.uploading {
			what = "Uploading"
		}
		status = m.spinner.View() + " " + m.styles.Muted.Render(what+"...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		status,
		m.styles.Input.Render(m.textinput.View()),
	)
}

// Run starts the chat program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, engine *conversation.Engine, pipeline *documents.Pipeline, panel *references.Panel, noColor bool) error {
	p := tea.NewProgram(
		New(ctx, engine, pipeline, panel, noColor),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

func exportTranscript(e *conversation.Engine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.ExportJSONL(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
