package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6B7B83")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Card    lipgloss.Style
	Header  lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Label:   lipgloss.NewStyle().Foreground(colorMuted),
	Value:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Width(22),
	Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
}

func renderNotification(n session.Notification) string {
	style := styles.Success
	switch n.Level {
	case session.LevelError:
		style = styles.Error
	case session.LevelWarning:
		style = styles.Warning
	case session.LevelInfo:
		style = styles.Muted
	}
	text := n.Title
	if n.Message != "" {
		text += ": " + n.Message
	}
	return style.Render(text)
}

func renderUser(w io.Writer, u *types.User) {
	fmt.Fprintln(w, styles.Title.Render(u.Name))
	fmt.Fprintf(w, "%s %s\n", styles.Label.Render("email "), u.Email)
	fmt.Fprintf(w, "%s %s\n", styles.Label.Render("role  "), u.Role)
	if d := u.EmailDomain(); d != "" {
		fmt.Fprintf(w, "%s %s\n", styles.Label.Render("domain"), d)
	}
}

func card(label, value string) string {
	return styles.Card.Render(styles.Label.Render(label) + "\n" + styles.Value.Render(value))
}

func renderKPIs(w io.Writer, view *types.DashboardView) {
	k := view.KPIs
	cards := []string{
		card("Total Agents", aggregator.FormatCount(k.TotalAgents)),
		card("Calls Analysed", aggregator.FormatCount(k.TotalCallsAnalysed)),
		card("Total Duration", strconv.Itoa(k.TotalDuration)+" min"),
		card("Average Score", strconv.Itoa(k.AverageScore)+"%"),
		card("Custom KPI", strconv.Itoa(k.CustomKPI)+"%"),
	}
	if view.Metrics != nil {
		cards = append(cards,
			card("Success Rate", strconv.Itoa(view.SuccessRate)+"%"),
			card("Active Calls", strconv.Itoa(view.ActiveCalls)),
		)
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cards[:5]...))
	if len(cards) > 5 {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cards[5:]...))
	}
}

// bar draws value out of 100 as a fixed-width bar
func bar(value int, color lipgloss.Color) string {
	const width = 20
	filled := value * width / 100
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		styles.Muted.Render(strings.Repeat("░", width-filled))
}

func renderCharts(w io.Writer, c types.ChartSummary) {
	fmt.Fprintln(w, styles.Title.Render("Section scores"))
	for _, s := range c.SectionScores {
		fmt.Fprintf(w, "  %-20s %s %3d\n", s.Section, bar(s.Score, colorAccent), s.Score)
	}

	total := 0
	for _, s := range c.CallClassification {
		total += s.Value
	}
	fmt.Fprintln(w, styles.Title.Render("Call classification"))
	for _, s := range c.CallClassification {
		pct := 0
		if total > 0 {
			pct = aggregator.Round(float64(s.Value) / float64(total) * 100)
		}
		fmt.Fprintf(w, "  %-20s %s %3d\n", s.Name, bar(pct, lipgloss.Color(s.Color)), s.Value)
	}

	fmt.Fprintln(w, styles.Title.Render("Key metrics"))
	fmt.Fprintf(w, "  %-20s %3d%%\n", "Promise to pay", c.KeyMetrics.PTPPercentage)
	fmt.Fprintf(w, "  %-20s %3d%%\n", "Right party contact", c.KeyMetrics.RPCPercentage)
	fmt.Fprintf(w, "  %-20s %3d%%\n", "Conversion rate", c.KeyMetrics.ConversionRate)

	fmt.Fprintln(w, styles.Title.Render("Conversation"))
	fmt.Fprintf(w, "  %-20s %3d wpm\n", "Speech rate", c.AverageSpeechRate)
	fmt.Fprintf(w, "  %-20s %s %d/%d\n", "Talk / silence", bar(c.TalkPercentage.Talk, colorAccent), c.TalkPercentage.Talk, c.TalkPercentage.Silence)
	fmt.Fprintf(w, "  %-20s %d fatal, %d normal\n", "Fatal calls", c.FatalCalls.Fatal, c.FatalCalls.Normal)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func renderAgents(w io.Writer, agents []types.Agent) {
	t := newTable("", "Name", "Email", "Status", "Score", "Calls")
	for _, a := range agents {
		t.Row(aggregator.Initials(a.Name), a.Name, a.Email, string(a.Status),
			strconv.Itoa(aggregator.Round(a.Score)), aggregator.FormatCount(a.CallsHandled))
	}
	fmt.Fprintln(w, t.Render())
}

func renderCalls(w io.Writer, calls []types.Call) {
	t := newTable("Date", "Agent", "Duration", "Score", "Classification")
	for _, c := range calls {
		t.Row(c.Date.Format("2006-01-02"), c.AgentName, aggregator.FormatDuration(c.Duration*60),
			strconv.Itoa(aggregator.Round(c.Score)), string(c.Classification))
	}
	fmt.Fprintln(w, t.Render())
}

func renderCallLogs(w io.Writer, page *types.CallLogPage) {
	t := newTable("ID", "Contact", "Phone", "Called", "Disposition", "Duration", "Score", "Transcript")
	for _, r := range page.Rows {
		transcript := ""
		if r.HasTranscript {
			transcript = "yes"
		}
		t.Row(r.ID, r.Name, r.PhoneNumber, r.CalledAt.Format("2 Jan 2006 15:04"), string(r.Disposition),
			r.DurationLabel, strconv.FormatFloat(r.AgentScore, 'f', 1, 64), transcript)
	}
	fmt.Fprintln(w, t.Render())

	counts := make([]string, 0, len(types.Dispositions))
	for _, d := range types.Dispositions {
		counts = append(counts, fmt.Sprintf("%s %d", d, page.Dispositions[d]))
	}
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d shown · %s", page.Total, strings.Join(counts, " · "))))
}

func renderTranscript(w io.Writer, view *types.TranscriptView) {
	fmt.Fprintln(w, styles.Title.Render("Call "+view.CallID))
	if view.Summary != nil {
		fmt.Fprintln(w, styles.Muted.Render(*view.Summary))
	}
	if len(view.Turns) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No transcript available"))
		return
	}
	agent := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	customer := lipgloss.NewStyle().Bold(true)
	for _, t := range view.Turns {
		label := customer.Render(string(t.Speaker) + ":")
		if t.Speaker == types.SpeakerAgent {
			label = agent.Render(string(t.Speaker) + ":")
		}
		fmt.Fprintf(w, "%s %s\n", label, t.Text)
	}
}
