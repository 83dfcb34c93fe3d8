// Package repl implements a compact line-editor front end over a session
// and its closure evaluator. The original teacher REPL additionally
// round-tripped an entire in-memory document through an external $EDITOR
// and offered fuzzy tab-completion wired directly to namespace internals;
// both are explicitly named external collaborators in scope ("the
// completer-adapter glue" — spec.md §1 Out of scope), so this front end
// keeps only what the spec treats as in-scope: reading statements, handing
// them to the evaluator, and reporting results/errors. Styling and the
// history/completion scaffolding still follow the teacher's bubbletea +
// lipgloss idiom.
package repl

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/shellcore/closure"
	"github.com/ardnew/shellcore/log"
	"github.com/ardnew/shellcore/parse"
	"github.com/ardnew/shellcore/session"
)

const prompt = "shellcore> "

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// model is the Bubble Tea model driving the REPL.
type model struct {
	ctx        context.Context
	sess       *session.Session
	input      textinput.Model
	history    *History
	historyIdx int
	lines      []string
	logger     log.Logger
	quitting   bool
}

// Run starts an interactive REPL against sess, persisting line history at
// historyPath (empty disables persistence).
func Run(ctx context.Context, sess *session.Session, historyPath string, logger log.Logger) error {
	hist := NewHistory(historyPath)
	if err := hist.Load(); err != nil {
		logger.WarnContext(ctx, "failed to load history", slog.Any("error", err))
	}

	ti := textinput.New()
	ti.Placeholder = "statement"
	ti.Prompt = ""
	ti.Focus()

	m := model{
		ctx:        ctx,
		sess:       sess,
		input:      ti,
		history:    hist,
		historyIdx: hist.Len(),
		logger:     logger,
	}

	_, err := tea.NewProgram(m).Run()

	return err
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.quitting = true

			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")

			if line == "" {
				return m, nil
			}

			m.lines = append(m.lines, promptStyle.Render(prompt)+line)

			if err := m.history.Append(line); err != nil {
				m.logger.WarnContext(m.ctx, "failed to persist history", slog.Any("error", err))
			}

			m.historyIdx = m.history.Len()
			m.lines = append(m.lines, m.evaluate(line))

			return m, nil

		case "tab":
			m.completeWord()

			return m, nil

		case "up":
			m.historyIdx--
			m.recallHistory()

			return m, nil

		case "down":
			m.historyIdx++
			m.recallHistory()

			return m, nil
		}
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	var sb strings.Builder

	for _, line := range m.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteString(promptStyle.Render(prompt))
	sb.WriteString(m.input.View())
	sb.WriteByte('\n')
	sb.WriteString(hintStyle.Render("tab: complete  up/down: history  ctrl+d: exit"))

	return sb.String()
}

func (m *model) recallHistory() {
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}

	if m.historyIdx >= m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")

		return
	}

	m.input.SetValue(m.history.At(m.historyIdx))
	m.input.CursorEnd()
}

func (m *model) completeWord() {
	text := m.input.Value()

	start := strings.LastIndexAny(text, " \t")
	word := text[start+1:]

	matches := complete(word, candidates(m.sess))
	if len(matches) == 0 {
		return
	}

	m.input.SetValue(text[:start+1] + matches[0])
	m.input.CursorEnd()
}

func (m model) evaluate(line string) string {
	prog, err := parse.Source("repl", line)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	frame := closure.New(m.sess, prog)

	result, err := frame.Execute(nil)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	if result == nil {
		return ""
	}

	return resultStyle.Render(result.String())
}
