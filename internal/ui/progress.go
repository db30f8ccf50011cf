// Package ui renders build progress in the terminal with Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	bp "wgslcompose/internal/buildpipeline"
)

const statusWidth = 10

// доля entry, пройденная к началу стадии
var stageWeight = map[bp.Stage]float64{
	bp.StageLoad:    0.1,
	bp.StageResolve: 0.4,
	bp.StageWrite:   0.9,
}

var workingLabel = map[bp.Stage]string{
	bp.StageLoad:    "loading",
	bp.StageResolve: "resolving",
	bp.StageWrite:   "writing",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = map[string]lipgloss.Style{
		"done":      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"cached":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"loading":   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"resolving": lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"writing":   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
)

type entryRow struct {
	path     string
	label    string
	stage    bp.Stage
	cached   bool
	finished bool
	elapsed  time.Duration
	errText  string
}

type progressModel struct {
	title   string
	events  <-chan bp.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []entryRow
	byPath  map[string]int
	width   int
	closed  bool
	stopped bool // пользователь прервал сборку
}

type eventMsg bp.Event

type closedMsg struct{}

// NewProgressModel renders one row per entry path and quits when events
// is closed.
func NewProgressModel(title string, entries []string, events <-chan bp.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]entryRow, len(entries)),
		byPath:  make(map[string]int, len(entries)),
		width:   80,
	}
	for i, path := range entries {
		m.rows[i] = entryRow{path: path, label: "queued"}
		m.byPath[path] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(bp.Event(msg)), m.next())
	case closedMsg:
		m.closed = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.stopped = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	done, cached, failed := m.counts()
	header := fmt.Sprintf("%s %s", m.spinner.View(), m.title)
	switch {
	case m.stopped:
		header = m.title + " (interrupted)"
	case m.closed:
		header = m.title
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d composed, %d cached, %d failed", done, len(m.rows), cached, failed)))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-14, 20)
	for _, row := range m.rows {
		label := fmt.Sprintf("%*s", statusWidth, row.label)
		if st, ok := statusStyle[row.label]; ok {
			label = st.Render(label)
		}
		fmt.Fprintf(&b, "  %s %s", label, Truncate(row.path, nameWidth))
		if row.finished && row.elapsed > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %.1fms", float64(row.elapsed)/float64(time.Millisecond))))
		}
		b.WriteByte('\n')
		if row.errText != "" {
			fmt.Fprintf(&b, "  %*s %s\n", statusWidth, "", Truncate(row.errText, nameWidth))
		}
	}

	b.WriteByte('\n')
	if m.closed {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// Interrupted reports whether the user quit the progress view before the
// build finished.
func Interrupted(model tea.Model) bool {
	m, ok := model.(*progressModel)
	return ok && m.stopped
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) apply(ev bp.Event) tea.Cmd {
	i, ok := m.byPath[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[i]
	if label := StatusLabel(ev.Stage, ev.Status); label != "" {
		row.label = label
		row.stage = ev.Stage
	}
	row.elapsed += ev.Elapsed
	switch {
	case ev.Status == bp.StatusCached:
		row.cached = true
	case ev.Status == bp.StatusError:
		row.finished = true
		if ev.Err != nil {
			// только первая строка, полная диагностика печатается после сборки
			row.errText, _, _ = strings.Cut(ev.Err.Error(), "\n")
		}
	case ev.Stage == bp.StageWrite && ev.Status == bp.StatusDone:
		row.finished = true
		if row.cached {
			row.label = "cached"
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range m.rows {
		if row.finished {
			total++
		} else {
			total += stageWeight[row.stage]
		}
	}
	return total / float64(len(m.rows))
}

// counts returns finished entries, how many of them came from the cache,
// and how many failed.
func (m *progressModel) counts() (done, cached, failed int) {
	for _, row := range m.rows {
		switch {
		case !row.finished:
		case row.errText != "" || row.label == "error":
			failed++
		default:
			done++
			if row.cached {
				cached++
			}
		}
	}
	return done, cached, failed
}

// StatusLabel is the short word shown next to an entry; "" keeps the
// previous label.
func StatusLabel(stage bp.Stage, status bp.Status) string {
	switch status {
	case bp.StatusQueued, bp.StatusError, bp.StatusCached:
		return string(status)
	case bp.StatusWorking:
		return workingLabel[stage]
	case bp.StatusDone:
		if stage == bp.StageWrite {
			return "done"
		}
	}
	return ""
}

// Truncate shortens value to width terminal columns with a "..." suffix.
func Truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
