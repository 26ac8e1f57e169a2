package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiy/taskbridge/internal/store"
	"github.com/xiy/taskbridge/pkg/types"
)

type tickMsg time.Time
type dashboardMsg struct {
	stats    types.DatabaseStats
	reqLogs  []store.RequestLog
	items    []types.WorkItem
	err      error
	duration time.Duration
}

type dashboardStore interface {
	DatabaseStats(ctx context.Context) (types.DatabaseStats, error)
	RecentRequestLogs(ctx context.Context, limit int) ([]store.RequestLog, error)
	ListWorkItems(ctx context.Context, limit int) ([]types.WorkItem, error)
}

type model struct {
	ctx           context.Context
	st            dashboardStore
	stats         types.DatabaseStats
	reqLogs       []store.RequestLog
	items         []types.WorkItem
	lastErr       error
	lastTick      time.Time
	logLines      []string
	maxLogs       int
	requestsLimit int
	itemsLimit    int
	width         int
	height        int
}

// Run starts a lightweight local admin dashboard.
func Run(ctx context.Context, st dashboardStore) error {
	m := model{
		ctx:           ctx,
		st:            st,
		maxLogs:       10,
		requestsLimit: 8,
		itemsLimit:    8,
	}
	m = m.appendLog("admin UI started")
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchDashboardCmd(m.ctx, m.st, m.requestsLimit, m.itemsLimit), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.appendLog("received quit signal")
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(fetchDashboardCmd(m.ctx, m.st, m.requestsLimit, m.itemsLimit), tickCmd())
	case dashboardMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.reqLogs = msg.reqLogs
			m.items = msg.items
			m = m.appendLog(fmt.Sprintf(
				"refresh ok users=%d tasks=%d req=%d items=%d (%s)",
				msg.stats.UserCount,
				msg.stats.TaskCount,
				len(msg.reqLogs),
				len(msg.items),
				formatDuration(msg.duration),
			))
		} else {
			m = m.appendLog(fmt.Sprintf("refresh error: %v", msg.err))
		}
	}
	return m, nil
}

func (m model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("taskbridge admin")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q to quit • refresh every 2s")

	statsBody := m.renderStats()
	logBody := "(no log events yet)"
	if len(m.logLines) > 0 {
		logBody = strings.Join(m.logLines, "\n")
	}

	paneWidth := 54
	if m.width > 0 {
		paneWidth = max(38, (m.width-3)/2)
	}
	paneHeight := 9
	if m.height > 0 {
		paneHeight = max(8, (m.height-8)/2)
	}

	topRow := joinColumns(
		renderPane("Database", statsBody, paneWidth, paneHeight),
		renderPane("General Logs", logBody, paneWidth, paneHeight),
	)
	bottomRow := joinColumns(
		renderPane("Bridge Requests", formatRequestPane(m.reqLogs), paneWidth, paneHeight),
		renderPane("Recent Tasks", formatRecentItemsPane(m.items), paneWidth, paneHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		"",
		topRow,
		bottomRow,
	)
}

func (m model) renderStats() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Users: %d   Tasks: %d\n\n", m.stats.UserCount, m.stats.TaskCount)
	for _, s := range types.Statuses() {
		fmt.Fprintf(&sb, "%-10s %d\n", string(s), m.stats.ByStatus[s])
	}
	sb.WriteString("\n")
	for _, p := range types.Priorities() {
		fmt.Fprintf(&sb, "%-10s %d\n", string(p), m.stats.ByPriority[p])
	}
	fmt.Fprintf(&sb, "\nLast refresh: %s", formatTime(m.lastTick))
	body := sb.String()
	if m.lastErr != nil {
		body += "\n\nLast error: " + truncateText(compactWhitespace(m.lastErr.Error()), 120)
	}
	return body
}

func fetchDashboardCmd(ctx context.Context, st dashboardStore, reqLimit, itemLimit int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		stats, err := st.DatabaseStats(ctx)
		if err != nil {
			return dashboardMsg{err: err, duration: time.Since(start)}
		}

		reqLogs, err := st.RecentRequestLogs(ctx, reqLimit)
		if err != nil {
			return dashboardMsg{stats: stats, err: err, duration: time.Since(start)}
		}

		items, err := st.ListWorkItems(ctx, itemLimit)
		if err != nil {
			return dashboardMsg{stats: stats, reqLogs: reqLogs, err: err, duration: time.Since(start)}
		}

		return dashboardMsg{
			stats:    stats,
			reqLogs:  reqLogs,
			items:    items,
			duration: time.Since(start),
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func (m model) appendLog(line string) model {
	if strings.TrimSpace(line) == "" {
		return m
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), line)
	m.logLines = append(m.logLines, entry)
	if m.maxLogs <= 0 {
		m.maxLogs = 10
	}
	if len(m.logLines) > m.maxLogs {
		m.logLines = m.logLines[len(m.logLines)-m.maxLogs:]
	}
	return m
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func renderPane(title, body string, width, height int) string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(title + "\n\n" + body)
}

func joinColumns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func formatRequestPane(rows []store.RequestLog) string {
	if len(rows) == 0 {
		return "(no bridge requests yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		label := strings.TrimSpace(row.Transport)
		if row.ToolName != "" {
			label += ":" + strings.TrimSpace(row.ToolName)
		}
		status := "ok"
		if !row.Success {
			status = "err"
		}
		line := fmt.Sprintf(
			"[%s] %-3s %-28s %4dms",
			formatClock(row.CreatedAt),
			status,
			truncateText(label, 28),
			max(0, row.DurationMS),
		)
		if !row.Success && strings.TrimSpace(row.ErrorText) != "" {
			line += " " + truncateText(compactWhitespace(row.ErrorText), 48)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatRecentItemsPane(rows []types.WorkItem) string {
	if len(rows) == 0 {
		return "(no tasks yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		line := fmt.Sprintf(
			"[%s] %-9s %-6s %s",
			formatClock(row.CreatedAt),
			string(row.Status),
			string(row.Priority),
			truncateText(compactWhitespace(row.Title), 48),
		)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
