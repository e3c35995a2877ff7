package sink

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/producer"
	"pulseops-collector/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// recordMsg carries a rendered record line and its data.
type recordMsg struct {
	line string
	rec  telemetry.Record
}

// statusMsg carries a collector state update for the footer.
type statusMsg struct {
	mode    string
	breaker producer.BreakerSnapshot
	faults  bool
}

// adminMsg reports whether the admin listener is active.
type adminMsg struct{ active bool }

// setToggleMsg registers a callback that flips fault injection.
type setToggleMsg struct{ fn func() bool }

// maxLogLines bounds the record viewport backlog.
const maxLogLines = 1000

// TUIWriter renders records using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
// When the user quits the TUI, the process receives an interrupt so
// the collector loop shuts down with it.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteRecord implements RecordWriter.
func (w *TUIWriter) WriteRecord(_ context.Context, rec telemetry.Record) error {
	line := fmt.Sprintf("%s[%s]%s %ssource=%s%s %stemp=%s%s %swind=%s%s %slatency=%.1fms%s %sstatus=%s%s",
		colorGray, rec.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, rec.Source, colorReset,
		colorMagenta, fmtReading(rec.Temperature), colorReset,
		colorCyan, fmtReading(rec.Windspeed), colorReset,
		colorYellow, rec.LatencyMS, colorReset,
		statusColor(rec), rec.Status, colorReset)
	if rec.Error != "" {
		line += fmt.Sprintf(" %serr=%q%s", colorRed, rec.Error, colorReset)
	}
	w.program.Send(recordMsg{line: line, rec: rec})
	return nil
}

// WriteStatus implements StatusWriter.
func (w *TUIWriter) WriteStatus(mode string, breaker producer.BreakerSnapshot, faultsEnabled bool) {
	w.program.Send(statusMsg{mode: mode, breaker: breaker, faults: faultsEnabled})
}

// SetAdminStatus updates the admin listener indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetFaultToggler registers a callback for the fault injection key.
func (w *TUIWriter) SetFaultToggler(fn func() bool) {
	w.program.Send(setToggleMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.Config
	table        table.Model
	vp           viewport.Model
	logs         []string
	counts       map[string]int
	total        int
	mode         string
	breaker      producer.BreakerSnapshot
	faults       bool
	haveStatus   bool
	toggle       func() bool
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.Config) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 22},
		{Title: "Value", Width: 40},
	}
	rows := []table.Row{
		{"Mode", cfg.Mode},
		{"Sinks", strings.Join(cfg.Sinks, ",")},
		{"Index", cfg.IndexName},
	}
	if cfg.Mode == config.ModeLive {
		rows = append(rows,
			table.Row{"Upstream", cfg.OpenMeteoURL},
			table.Row{"City", fmt.Sprintf("%.4f,%.4f", cfg.CityLat, cfg.CityLon)},
			table.Row{"Loop Delay", cfg.LoopDelay.String()},
			table.Row{"Max Retries", fmt.Sprintf("%d", cfg.MaxRetries)},
			table.Row{"Breaker Threshold", fmt.Sprintf("%d", cfg.FailThreshold)},
		)
	} else {
		rows = append(rows,
			table.Row{"Replay File", cfg.ReplayFile},
			table.Row{"Replay Delay", cfg.ReplayDelay.String()},
			table.Row{"Fault Every N", fmt.Sprintf("%d", cfg.FaultEveryN)},
			table.Row{"Fault Probability", fmt.Sprintf("%.2f", cfg.FaultProb)},
		)
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		counts:     make(map[string]int),
		mode:       cfg.Mode,
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.table.View()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "f":
			if m.toggle != nil {
				m.faults = m.toggle()
				m.haveStatus = true
			}
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case recordMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.total++
		m.counts[msg.rec.Status]++
		m.refreshViewport()
	case statusMsg:
		m.mode = msg.mode
		m.breaker = msg.breaker
		m.faults = msg.faults
		m.haveStatus = true
	case adminMsg:
		m.admin = msg.active
	case setToggleMsg:
		m.toggle = msg.fn
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	h := m.height - m.headerHeight - bottomHeight - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderBottom() string {
	healthy := m.counts[telemetry.StatusOK] + m.counts[telemetry.StatusNoCurrentWeather]
	state := fmt.Sprintf("%sRECORDS%s %smode=%s%s %stotal=%d%s %sok=%d%s %sdegraded=%d%s",
		colorBlue, colorReset,
		colorCyan, m.mode, colorReset,
		colorGreen, m.total, colorReset,
		colorGreen, healthy, colorReset,
		colorRed, m.total-healthy, colorReset)
	if m.haveStatus && m.mode == config.ModeLive {
		breakerColor := colorGreen
		if m.breaker.State != "closed" {
			breakerColor = colorRed
		}
		state += fmt.Sprintf(" %sbreaker=%s(%d/%d)%s", breakerColor, m.breaker.State, m.breaker.Failures, m.breaker.Threshold, colorReset)
	}
	if m.haveStatus && m.mode == config.ModeReplay {
		state += fmt.Sprintf(" %sfaults=%t%s", colorYellow, m.faults, colorReset)
	}

	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	helpColor := lipgloss.Color("9")
	if m.help {
		helpColor = lipgloss.Color("10")
	}
	adminIndicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	helpIndicator := lipgloss.NewStyle().Foreground(helpColor).Render("●")
	return fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | Help %s", state, adminIndicator, wrapIndicator, scrollIndicator, helpIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for record lines",
		" s  toggle auto-scroll",
		" f  toggle fault injection (replay mode)",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
