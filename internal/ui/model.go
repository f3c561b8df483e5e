package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/sched"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/dustin/go-humanize"
)

const maxLogLines = 100

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// haltStyle marks a halted machine.
	haltStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// SnapshotMsg is a [tea.Msg] carrying a fresh kernel [Snapshot].
type SnapshotMsg struct {
	t        time.Time
	snapshot Snapshot
	ok       bool
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler

	fullWidthWithBorders  int
	splitWidthWithBorders int

	snapshot Snapshot
	updated  time.Time

	diskProgress progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler: uiHandler,
		diskProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(80),
		),
		logsViewport: viewport.New(80, 20),
		logs:         make([]string, 0, maxLogLines),
		cancel:       cancel,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateSnapshot(m.uiHandler.source),
	)
}

// updateSnapshot produces a [tea.Cmd] which, when executed, returns a
// [SnapshotMsg] with the state of the kernel.
func updateSnapshot(source snapshotProvider) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		snapshot, ok := source.Snapshot()

		return SnapshotMsg{t: t, snapshot: snapshot, ok: ok}
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 3) - 2

		m.diskProgress.Width = m.splitWidthWithBorders

		// Upper panels take about half of the height.
		upperHeight := m.height / 2
		lowerHeight := m.height - upperHeight

		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = lowerHeight - 3

		if len(m.logs) > 0 {
			m.refreshLogs()
		}

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case SnapshotMsg:
		// A dispatch was in flight, keep the last snapshot.
		if msg.ok {
			m.snapshot = msg.snapshot
			m.updated = msg.t

			cmds = append(cmds, m.diskProgress.SetPercent(diskUsage(m.snapshot.Storage)))
		}

		cmds = append(cmds, updateSnapshot(m.uiHandler.source))

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}

		m.logs = append(m.logs, string(msg))
		m.refreshLogs()

	case progress.FrameMsg:
		updated, cmd := m.diskProgress.Update(msg)
		if progressModel, ok := updated.(progress.Model); ok {
			m.diskProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TeaModel) refreshLogs() {
	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	tasksView := m.formatPanel("Tasks", formatTasks(m.snapshot.Tasks))
	filesView := m.formatPanel("Files", formatFiles(m.snapshot.Storage))
	diskView := m.formatPanel("Disk & Pipes", lipgloss.JoinVertical(
		lipgloss.Left,
		m.diskProgress.View(),
		"",
		formatDisk(m.snapshot),
		formatPipes(m.snapshot.Pipes),
	))

	upperSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(tasksView),
		borderStyle.Width(m.splitWidthWithBorders).Render(filesView),
		borderStyle.Width(m.splitWidthWithBorders).Render(diskView),
	)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Kernel Log"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	status := "running"
	if m.snapshot.HaltReason != "" {
		status = haltStyle.Render("halted: " + m.snapshot.HaltReason)
	}

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render(fmt.Sprintf("%s • updated %s • q: quit gui • ctrl+c: quit kernel",
			status, m.updated.Format("15:04:05")))

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		upperSection,
		logsSection,
		helpSection,
	))

	return s.String()
}

// formatPanel is a helper function for rendering the upper panels.
func (m TeaModel) formatPanel(title string, body string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render(title),
		"", // Empty line for spacing.
		infoStyle.Width(m.splitWidthWithBorders).Render(body),
	)
}

// diskUsage returns the share of the data region below the allocation
// cursor.
func diskUsage(s storage.Snapshot) float64 {
	total := s.Superblock.DataBlocks()
	if total == 0 {
		return 0
	}

	return float64(min(s.Cursor, total)) / float64(total)
}

func formatTasks(tasks []sched.Status) string {
	if len(tasks) == 0 {
		return "No tasks."
	}

	var b strings.Builder

	for _, t := range tasks {
		marker := " "
		if t.Current {
			marker = "*"
		}

		state := "free"
		if t.Active {
			state = "active"
		}

		fmt.Fprintf(&b, "%s%d %-6s entry=0x%08x eip=0x%08x esp=0x%08x\n",
			marker, t.ID, state, t.Entry, t.Saved.EIP, t.Saved.UserESP)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func formatFiles(s storage.Snapshot) string {
	if len(s.Files) == 0 {
		return "No files."
	}

	var b strings.Builder

	for _, f := range s.Files {
		fmt.Fprintf(&b, "%-20s %9s  @%-5d %s\n",
			f.Name, humanize.IBytes(uint64(f.Size)), f.StartBlock, f.Permissions)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func formatPipes(pipes []pipe.Status) string {
	if len(pipes) == 0 {
		return "No pipes."
	}

	var b strings.Builder

	for _, p := range pipes {
		fmt.Fprintf(&b, "pipe %d/%d %s/%s refs=%d r=%t w=%t\n",
			p.ReadID, p.WriteID,
			humanize.IBytes(uint64(p.Used)), humanize.IBytes(uint64(p.Capacity)), //nolint:gosec
			p.RefCount, p.Readable, p.Writable)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func formatDisk(s Snapshot) string {
	sb := s.Storage.Superblock

	return fmt.Sprintf(
		"Data: %s of %s used (cursor %d)\n"+
			"I/O: reads=%d writes=%d flushes=%d\n"+
			"Machine: traps=%d switches=%d faults=%d\n",
		humanize.IBytes(uint64(s.Storage.Cursor)*storage.BlockSize),
		humanize.IBytes(uint64(sb.DataBlocks())*storage.BlockSize),
		s.Storage.Cursor,
		s.Disk.Reads, s.Disk.Writes, s.Disk.Flushes,
		s.Machine.Traps, s.Machine.Switches, s.Machine.Faults,
	)
}
