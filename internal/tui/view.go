package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"folio/internal/domain"
	"folio/internal/report"
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userLabelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabel     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	thinkingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.opts.Profile.Name)
	if m.opts.Profile.Title != "" {
		header += mutedStyle.Render("  " + m.opts.Profile.Title)
	}
	summary := mutedStyle.Render(m.opts.Profile.Summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + m.statusLine()
}

func (m Model) statusLine() string {
	switch {
	case m.turn != nil && m.turn.Thinking():
		return thinkingStyle.Render("thinking…")
	case m.turn != nil:
		return mutedStyle.Render("answering…")
	case m.lastIsError():
		return errorStyle.Render(m.reportLine())
	case len(m.messages) == 0 && len(m.opts.Profile.Suggestions) > 0:
		return mutedStyle.Render("press 1-6 for a suggested question · ctrl+c to quit")
	default:
		return mutedStyle.Render("enter to send · ctrl+c to quit")
	}
}

func (m Model) reportLine() string {
	switch m.reportStatus {
	case report.Sending:
		return "Sending report…"
	case report.Sent:
		return "Report sent. Thanks for letting " + m.opts.Owner + " know."
	case report.Failed:
		return "Could not send the report. ctrl+r to try again."
	default:
		return "ctrl+r to report this issue"
	}
}

func (m Model) renderTranscript() string {
	width := max(10, m.viewport.Width-2)
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	if len(m.messages) == 0 && m.turn == nil {
		b.WriteString(mutedStyle.Render("Hi! Ask me about my experience, projects or skills."))
		b.WriteString("\n")
		for i, s := range m.opts.Profile.Suggestions {
			if i == 6 {
				break
			}
			fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
		}
		return b.String()
	}

	msgs := m.messages
	if m.turn != nil {
		msgs = slices.Concat(m.messages, m.turn.Messages())
	}
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, body))
	}
	if m.turn != nil && m.turn.Thinking() {
		if len(msgs) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(assistantLabel.Render(m.opts.Owner) + "\n" + m.spinner.View() + " " + thinkingStyle.Render("thinking"))
	}
	return b.String()
}

func (m Model) renderMessage(msg domain.Message, body lipgloss.Style) string {
	switch {
	case msg.Role == domain.RoleUser:
		return userLabelStyle.Render("You") + "\n" + body.Render(msg.Content)
	case msg.IsError:
		return errorStyle.Render("⚠ "+m.opts.Owner) + "\n" + body.Inherit(errorStyle).Render(msg.Content)
	default:
		return assistantLabel.Render(m.opts.Owner) + "\n" + body.Render(msg.Content)
	}
}
