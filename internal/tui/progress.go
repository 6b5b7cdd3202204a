package tui

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const (
	maxBarWidth = 60
	// updates sent to the progress bar per second
	barRate = 15
	// log lines written per second when no terminal is attached
	logRate = 0.5
)

type progressMsg int64

type progressDoneMsg struct{}

type progressModel struct {
	title string
	bar   progress.Model
	total int64
	done  int64
	over  bool
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.done = int64(msg)
	case progressDoneMsg:
		m.over = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = barWidth(msg.Width)
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.over {
		return ""
	}
	size := humanize.Bytes(uint64(max(m.done, 0)))
	if m.total <= 0 {
		return fmt.Sprintf("%s %s\n", m.title, ColorDim(size))
	}
	ratio := float64(m.done) / float64(m.total)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.title+" ",
		m.bar.ViewAs(min(ratio, 1)),
		" "+ColorDim(size+" / "+humanize.Bytes(uint64(m.total))),
	) + "\n"
}

func barWidth(termWidth int) int {
	return max(10, min(maxBarWidth, termWidth/2))
}

// Progress reports the advance of a transfer. It is an io.Writer counting the
// bytes written through it, so it can sit behind an io.MultiWriter.
type Progress struct {
	title   string
	total   int64
	written atomic.Int64
	limiter *rate.Limiter
	splog   *Splog

	program *tea.Program
	wg      sync.WaitGroup
	once    sync.Once
}

// NewProgress starts reporting a transfer of total bytes, or of unknown size
// when total is not positive. A bar is drawn when stdout is a terminal and info
// messages are shown; otherwise percentages are logged at debug level.
func NewProgress(splog *Splog, title string, total int64) *Progress {
	p := &Progress{title: title, total: total, splog: splog}
	if !splog.Enabled(LevelInfo) || !IsTTY() {
		p.limiter = rate.NewLimiter(rate.Limit(logRate), 1)
		return p
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = maxBarWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		bar.Width = barWidth(w)
	}
	p.limiter = rate.NewLimiter(rate.Limit(barRate), 1)
	p.program = tea.NewProgram(
		progressModel{title: title, bar: bar, total: total},
		tea.WithInput(nil),
		tea.WithOutput(splog.Writer()),
	)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_, _ = p.program.Run()
	}()
	return p
}

// Write counts len(b) bytes.
func (p *Progress) Write(b []byte) (int, error) {
	n := p.written.Add(int64(len(b)))
	if p.limiter.Allow() {
		p.report(n)
	}
	return len(b), nil
}

// Written returns the number of bytes counted so far.
func (p *Progress) Written() int64 {
	return p.written.Load()
}

func (p *Progress) report(n int64) {
	if p.program != nil {
		p.program.Send(progressMsg(n))
		return
	}
	if p.total > 0 {
		p.splog.Debug("%s: %d%% (%s)", p.title, n*100/p.total, humanize.Bytes(uint64(n)))
	} else {
		p.splog.Debug("%s: %s", p.title, humanize.Bytes(uint64(n)))
	}
}

// Finish stops the display and waits for it to be cleared. It is safe to call
// more than once.
func (p *Progress) Finish() {
	p.once.Do(func() {
		if p.program == nil {
			return
		}
		p.program.Send(progressMsg(p.written.Load()))
		p.program.Send(progressDoneMsg{})
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			p.program.Kill()
			p.wg.Wait()
		}
	})
}
