package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"folio/internal/client"
	"folio/internal/domain"
	"folio/internal/report"
	"folio/internal/reveal"
	"folio/internal/stream"
)

// ChatPort is the TUI-facing subset of the chat client.
type ChatPort interface {
	Ask(ctx context.Context, message string, streaming bool) <-chan stream.Event
}

// Reporter sends failure reports.
type Reporter interface {
	Configured() bool
	Send(ctx context.Context, r report.Report) error
}

// Options configures a Model.
type Options struct {
	Profile  client.Profile
	Owner    string
	Reveal   reveal.Config
	NoStream bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	chat     ChatPort
	reporter Reporter
	opts     Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	messages []domain.Message
	turn     *reveal.Turn
	seq      int
	cancel   context.CancelFunc
	question string

	reportStatus report.Status
	now          func() time.Time
}

// New creates a chat model. reporter may be nil.
func New(chat ChatPort, reporter Reporter, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask me anything about my work"
	ti.Focus()
	ti.CharLimit = 500
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = thinkingStyle
	if opts.Owner == "" {
		opts.Owner = opts.Profile.Name
	}
	opts.Reveal.Owner = opts.Owner
	if opts.Reveal.Tick <= 0 {
		opts.Reveal.Tick = reveal.DefaultConfig().Tick
	}
	return Model{
		chat:     chat,
		reporter: reporter,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		now:      time.Now,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// InFlight reports whether a reply is still being received or revealed.
func (m Model) InFlight() bool { return m.turn != nil }

// Messages returns the settled conversation.
func (m Model) Messages() []domain.Message { return m.messages }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := queryBoxStyle.GetFrameSize()
		_, th := transcriptBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header, summary, spacer; input line; status
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.stopTurn()
			return m, tea.Quit
		case tea.KeyCtrlR:
			return m.startReport()
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.InFlight() {
				return m, nil
			}
			m.input.Reset()
			return m.submit(q)
		case tea.KeyRunes:
			if i, ok := m.suggestionIndex(msg); ok {
				return m.submit(m.opts.Profile.Suggestions[i])
			}
		}

	case eventMsg:
		if msg.seq != m.seq || m.turn == nil {
			return m, nil
		}
		switch {
		case msg.closed:
			m.turn.Fail()
			return m, nil
		case msg.event.Err != nil:
			m.turn.Fail()
			return m, nil
		case msg.event.Done:
			m.turn.End()
			return m, nil
		}
		m.turn.Receive(msg.event.Content)
		return m, waitForEvent(msg.events, m.seq)

	case revealTickMsg:
		if msg.seq != m.seq || m.turn == nil {
			return m, nil
		}
		if m.turn.Step(msg.at) {
			m.refresh()
		}
		if m.turn.Done() {
			m.settle()
			return m, nil
		}
		return m, revealTick(m.opts.Reveal.Tick, m.seq)

	case spinner.TickMsg:
		if m.turn == nil || !m.turn.Thinking() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case reportResultMsg:
		if msg.err != nil {
			m.reportStatus = report.Failed
		} else {
			m.reportStatus = report.Sent
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a new turn for q. Only one turn runs at a time.
func (m Model) submit(q string) (tea.Model, tea.Cmd) {
	if m.InFlight() {
		return m, nil
	}
	m.messages = append(m.messages, domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: q})
	m.question = q
	m.reportStatus = report.Idle

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.seq++
	m.turn = reveal.NewTurn(m.opts.Reveal, m.now())
	events := m.chat.Ask(ctx, q, !m.opts.NoStream)
	m.refresh()
	return m, tea.Batch(waitForEvent(events, m.seq), revealTick(m.opts.Reveal.Tick, m.seq), m.spinner.Tick)
}

// settle moves the finished turn's messages into the transcript.
func (m *Model) settle() {
	m.messages = append(m.messages, m.turn.Messages()...)
	m.turn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.refresh()
}

func (m *Model) stopTurn() {
	if m.turn != nil {
		m.turn.Stop()
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m Model) suggestionIndex(k tea.KeyMsg) (int, bool) {
	if len(m.messages) > 0 || m.InFlight() || m.input.Value() != "" || len(k.Runes) != 1 {
		return 0, false
	}
	i := int(k.Runes[0] - '1')
	if i < 0 || i >= min(6, len(m.opts.Profile.Suggestions)) {
		return 0, false
	}
	return i, true
}

func (m Model) lastIsError() bool {
	return len(m.messages) > 0 && m.messages[len(m.messages)-1].IsError
}

func (m Model) startReport() (tea.Model, tea.Cmd) {
	if !m.lastIsError() || m.reportStatus == report.Sending || m.reportStatus == report.Sent {
		return m, nil
	}
	if m.reporter == nil || !m.reporter.Configured() {
		m.reportStatus = report.Failed
		m.refresh()
		return m, nil
	}
	m.reportStatus = report.Sending
	m.refresh()
	r := report.NewChatFailure(m.opts.Owner, m.question, m.now())
	reporter := m.reporter
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return reportResultMsg{err: reporter.Send(ctx, r)}
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

type eventMsg struct {
	seq    int
	event  stream.Event
	events <-chan stream.Event
	closed bool
}

type revealTickMsg struct {
	seq int
	at  time.Time
}

type reportResultMsg struct{ err error }

func waitForEvent(events <-chan stream.Event, seq int) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{seq: seq, event: ev, events: events, closed: !ok}
	}
}

func revealTick(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(at time.Time) tea.Msg {
		return revealTickMsg{seq: seq, at: at}
	})
}
