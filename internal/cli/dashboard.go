package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// Dashboard panel indices.
const (
	panelSuggestions = iota
	panelTime
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	suggestions []suggestionSnapshot
	openTodos   int
	debt        *models.TimeDebtEvent
	options     []models.CompensationOption
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// State.
	loading bool
	err     error
}

type suggestionSnapshot struct {
	priority   string
	text       string
	confidence float64
}

type metricsSnapshot struct {
	rebuilds       int
	patternCount   int
	suggestions    int
	todosCompleted int
	compensations  int
	eventCount     int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	suggestions []suggestionSnapshot
	openTodos   int
	debt        *models.TimeDebtEvent
	options     []models.CompensationOption
	metrics     *metricsSnapshot
	alerts      []alertSnapshot
	err         error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	debtOwed   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	debtCredit = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelSuggestions,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.suggestions = msg.suggestions
		m.openTodos = msg.openTodos
		m.debt = msg.debt
		m.options = msg.options
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Pulse Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	panels := []string{
		m.renderSuggestionsPanel(),
		m.renderTimePanel(),
		m.renderMetricsPanel(),
		m.renderAlertsPanel(),
	}

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Two-by-two grid.
		colWidth := availableWidth / 2
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], colWidth-4)
		}
		top := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelSuggestions], panels[panelTime])
		bottom := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelMetrics], panels[panelAlerts])
		body = lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], panelWidth)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, panels...)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderSuggestionsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Suggestions"))
	b.WriteString("\n")

	if len(m.suggestions) == 0 {
		b.WriteString("  No suggestions right now.")
	}
	for i, s := range m.suggestions {
		label := styleForPriority(s.priority).Render(fmt.Sprintf("%-6s", s.priority))
		b.WriteString(fmt.Sprintf("  %d. %s %s (%.2f)\n", i+1, label, s.text, s.confidence))
	}

	b.WriteString(fmt.Sprintf("\n  Open todos: %d", m.openTodos))
	return b.String()
}

func (m dashboardModel) renderTimePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Time"))
	b.WriteString("\n")

	switch {
	case m.debt == nil:
		b.WriteString("  No daily target configured.")
		return b.String()
	case m.debt.IsDebt():
		b.WriteString(debtOwed.Render(fmt.Sprintf("  %s owed", formatMinutes(m.debt.AmountMinutes))))
	case m.debt.AmountMinutes < 0:
		b.WriteString(debtCredit.Render(fmt.Sprintf("  %s ahead", formatMinutes(-m.debt.AmountMinutes))))
		return b.String()
	default:
		b.WriteString("  On target.")
		return b.String()
	}
	b.WriteString("\n\n")

	if len(m.options) == 0 {
		b.WriteString("  No compensation option fits.")
		return b.String()
	}
	for i, o := range m.options {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, o.Description))
	}
	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Rebuilds", md.rebuilds},
		{"Patterns", md.patternCount},
		{"Suggestions", md.suggestions},
		{"Completed", md.todosCompleted},
		{"Compensations", md.compensations},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForPriority(priority string) lipgloss.Style {
	switch models.Priority(priority) {
	case models.PriorityHigh:
		return priorityHigh
	case models.PriorityMedium:
		return priorityMedium
	case models.PriorityLow:
		return priorityLow
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{}
	ctx := context.Background()
	now := nowFunc()

	// Load the decision from the planner.
	if Planner != nil {
		decision, err := Planner.Decide(ctx, now)
		if err != nil {
			result.err = fmt.Errorf("loading decision: %w", err)
			return result
		}
		for _, s := range decision.Suggestions {
			result.suggestions = append(result.suggestions, suggestionSnapshot{
				priority:   string(s.Priority),
				text:       s.Text,
				confidence: s.Confidence,
			})
		}
		result.debt = decision.Debt
		result.options = decision.Options
	}

	if TodoStore != nil {
		result.openTodos = len(TodoStore.List(false))
	}

	// Load metrics from MetricsCalc.
	if MetricsCalc != nil {
		since := now.UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			rebuilds:       metrics.Rebuilds,
			patternCount:   metrics.PatternCount,
			suggestions:    metrics.SuggestionsGenerated,
			todosCompleted: metrics.TodosCompleted,
			compensations:  metrics.CompensationsProposed,
			eventCount:     metrics.EventCount,
		}
	}

	// Load alerts from AlertEngine.
	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for suggestions, time debt and alerts",
	Long: `Launch an interactive terminal dashboard showing today's suggestions,
time debt with compensation options, metrics, and alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
