package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/internal/observability"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// --- Fake implementations ---

type fakePlanner struct {
	suggestions []models.Suggestion
	options     []models.CompensationOption
	completions []string
	err         error
	snapshot    *core.Snapshot

	suggestAt  time.Time
	event      models.TimeDebtEvent
	hour       int
	energy     *float64
	completeAt time.Time
}

func (f *fakePlanner) Suggest(_ context.Context, now time.Time) ([]models.Suggestion, error) {
	f.suggestAt = now
	return f.suggestions, f.err
}

func (f *fakePlanner) Debt(_ context.Context, now time.Time) (models.TimeDebtEvent, error) {
	return models.TimeDebtEvent{DetectedAt: now}, f.err
}

func (f *fakePlanner) Compensate(_ context.Context, event models.TimeDebtEvent, hour int, energy *float64) ([]models.CompensationOption, error) {
	f.event, f.hour, f.energy = event, hour, energy
	return f.options, f.err
}

func (f *fakePlanner) DetectCompletions(_ context.Context, now time.Time) ([]string, error) {
	f.completeAt = now
	return f.completions, f.err
}

func (f *fakePlanner) Decide(context.Context, time.Time) (*models.Decision, error) {
	return &models.Decision{}, f.err
}

func (f *fakePlanner) Snapshot() *core.Snapshot {
	if f.snapshot == nil {
		return &core.Snapshot{}
	}
	return f.snapshot
}

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
}

func (f *fakeMetricsCalculator) Calculate(_ time.Time) (*observability.Metrics, error) {
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, nil
}

// --- Test helpers ---

var fixedNow = time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)

func newTestServer(p core.Planner, mc observability.MetricsCalculator, ae observability.AlertEngine) *Server {
	srv := NewServer(p, mc, ae, "test")
	srv.now = func() time.Time { return fixedNow }
	return srv
}

func sampleSuggestions() []models.Suggestion {
	return []models.Suggestion{
		{
			Text:       "Code work (usual for Monday 09:00)",
			Category:   models.CategoryCode,
			Confidence: 0.9,
			Priority:   models.PriorityHigh,
			Source:     models.PatternRef{Kind: models.PatternTemporal, Signature: "1-09-CODE", Confidence: 0.85},
		},
		{
			Text:       "Continue auth-module",
			Category:   models.CategoryCode,
			Confidence: 0.6,
			Priority:   models.PriorityMedium,
			Source:     models.PatternRef{Kind: models.PatternContinuity, Signature: "auth-module", Confidence: 0.6},
		},
	}
}

// callTool connects a client to the server over in-memory transports and
// calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// callToolAllowError is like callTool but returns nil when the call fails at
// the protocol level (e.g. schema validation).
func callToolAllowError(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return nil
	}
	return result
}

// decodeResult reads the structured content, falling back to the text
// content, into out.
func decodeResult(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			t.Fatalf("marshalling structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshalling text content: %v (text was: %s)", err, text)
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestGetSuggestions(t *testing.T) {
	built := time.Date(2025, 3, 3, 2, 0, 0, 0, time.UTC)
	p := &fakePlanner{
		suggestions: sampleSuggestions(),
		snapshot:    &core.Snapshot{BuiltAt: built},
	}
	srv := newTestServer(p, nil, nil)

	result := callTool(t, srv, "get_suggestions", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out getSuggestionsOutput
	decodeResult(t, result, &out)

	if out.Count != 2 || len(out.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", out.Count)
	}
	first := out.Suggestions[0]
	if first.PatternSignature != "1-09-CODE" || first.PatternKind != "TEMPORAL" {
		t.Errorf("unexpected source %s/%s", first.PatternKind, first.PatternSignature)
	}
	if first.Priority != "HIGH" || first.Confidence != 0.9 {
		t.Errorf("unexpected priority/confidence %s/%v", first.Priority, first.Confidence)
	}
	if out.PatternsAt != built.Format(time.RFC3339) {
		t.Errorf("PatternsAt = %q", out.PatternsAt)
	}
	if !p.suggestAt.Equal(fixedNow) {
		t.Errorf("planner called with %v, want %v", p.suggestAt, fixedNow)
	}
}

func TestGetSuggestionsAt(t *testing.T) {
	p := &fakePlanner{}
	srv := newTestServer(p, nil, nil)

	result := callTool(t, srv, "get_suggestions", map[string]any{"at": "2025-03-04T09:30:00+02:00"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out getSuggestionsOutput
	decodeResult(t, result, &out)
	if out.Count != 0 {
		t.Errorf("expected no suggestions, got %d", out.Count)
	}
	want := time.Date(2025, 3, 4, 7, 30, 0, 0, time.UTC)
	if !p.suggestAt.Equal(want) {
		t.Errorf("planner called with %v, want %v", p.suggestAt, want)
	}
}

func TestGetSuggestionsErrors(t *testing.T) {
	tests := []struct {
		name string
		p    *fakePlanner
		args map[string]any
	}{
		{"bad time", &fakePlanner{}, map[string]any{"at": "yesterday"}},
		{"planner failure", &fakePlanner{err: errors.New("database is locked")}, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, newTestServer(tt.p, nil, nil), "get_suggestions", tt.args)
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if extractText(result) == "" {
				t.Fatal("expected error message in result content")
			}
		})
	}
}

func TestProposeCompensation(t *testing.T) {
	p := &fakePlanner{
		options: []models.CompensationOption{
			{Kind: models.CompensationStartEarlyTomorrow, AmountPerOccurrence: 90, Occurrences: 1, Schedule: []int{90}, RankScore: 1},
			{Kind: models.CompensationDistribute, AmountPerOccurrence: 45, Occurrences: 2, Schedule: []int{45, 45}, RankScore: 0.67},
		},
	}
	srv := newTestServer(p, nil, nil)

	result := callTool(t, srv, "propose_compensation", map[string]any{
		"minutes": 90,
		"reason":  "daily_target_shortfall",
		"hour":    17,
		"energy":  0.2,
	})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out proposeCompensationOutput
	decodeResult(t, result, &out)
	if out.Count != 2 {
		t.Fatalf("expected 2 options, got %d", out.Count)
	}
	if out.Options[0].Kind != "START_EARLY_TOMORROW" || out.Options[0].RankScore != 1 {
		t.Errorf("unexpected top option %+v", out.Options[0])
	}
	if len(out.Options[1].Schedule) != 2 {
		t.Errorf("expected a two-day schedule, got %v", out.Options[1].Schedule)
	}

	if p.event.AmountMinutes != 90 || p.event.Reason != "daily_target_shortfall" {
		t.Errorf("planner got event %+v", p.event)
	}
	if p.hour != 17 {
		t.Errorf("planner got hour %d, want 17", p.hour)
	}
	if p.energy == nil || *p.energy != 0.2 {
		t.Errorf("planner got energy %v, want 0.2", p.energy)
	}
}

func TestProposeCompensationDefaults(t *testing.T) {
	p := &fakePlanner{}
	srv := newTestServer(p, nil, nil)

	result := callTool(t, srv, "propose_compensation", map[string]any{"minutes": -30})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out proposeCompensationOutput
	decodeResult(t, result, &out)
	if out.Count != 0 {
		t.Errorf("credit should produce no options, got %d", out.Count)
	}
	if p.hour != fixedNow.Hour() {
		t.Errorf("hour defaulted to %d, want %d", p.hour, fixedNow.Hour())
	}
	if p.energy != nil {
		t.Errorf("energy should be left to the energy curve, got %v", *p.energy)
	}
}

func TestProposeCompensationInvalidEnergy(t *testing.T) {
	result := callTool(t, newTestServer(&fakePlanner{}, nil, nil), "propose_compensation", map[string]any{
		"minutes": 60,
		"energy":  1.5,
	})
	if !result.IsError {
		t.Fatal("expected error for energy above 1")
	}
}

func TestProposeCompensationDebtTooLarge(t *testing.T) {
	p := &fakePlanner{}
	result := callTool(t, newTestServer(p, nil, nil), "propose_compensation", map[string]any{
		"minutes": math.MaxInt32,
	})
	if !result.IsError {
		t.Fatal("expected error for an unschedulable debt")
	}
	if !strings.Contains(extractText(result), "too large") {
		t.Errorf("unexpected error text %q", extractText(result))
	}
	if p.event.AmountMinutes != 0 {
		t.Errorf("planner should not be called, got event %+v", p.event)
	}
}

func TestProposeCompensationMissingMinutes(t *testing.T) {
	// The SDK validates required fields at the schema level.
	result := callToolAllowError(t, newTestServer(&fakePlanner{}, nil, nil), "propose_compensation", map[string]any{})
	if result == nil {
		return
	}
	if !result.IsError {
		t.Fatal("expected error result for missing minutes")
	}
}

func TestDetectCompletions(t *testing.T) {
	p := &fakePlanner{completions: []string{"t-auth", "t-docs"}}
	result := callTool(t, newTestServer(p, nil, nil), "detect_completions", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out detectCompletionsOutput
	decodeResult(t, result, &out)
	if out.Count != 2 || out.TodoIDs[0] != "t-auth" {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestDetectCompletionsNone(t *testing.T) {
	result := callTool(t, newTestServer(&fakePlanner{}, nil, nil), "detect_completions", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out detectCompletionsOutput
	decodeResult(t, result, &out)
	if out.Count != 0 || out.TodoIDs == nil {
		t.Errorf("expected an empty, non-nil list, got %+v", out)
	}
}

func TestGetMetrics(t *testing.T) {
	now := time.Now().UTC()
	mc := &fakeMetricsCalculator{
		metrics: &observability.Metrics{
			Rebuilds:              4,
			PatternCount:          12,
			SuggestionRuns:        3,
			SuggestionsGenerated:  9,
			CompensationsProposed: 1,
			DebtByReason:          map[string]int{"daily_target_shortfall": 1},
			EventCount:            42,
			LastRebuild:           &now,
			OldestEvent:           &now,
			NewestEvent:           &now,
		},
	}
	result := callTool(t, newTestServer(&fakePlanner{}, mc, nil), "get_metrics", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var m metricsOutput
	decodeResult(t, result, &m)
	if m.Rebuilds != 4 || m.PatternCount != 12 {
		t.Errorf("unexpected rebuild metrics %+v", m)
	}
	if m.EventCount != 42 {
		t.Errorf("expected 42 events, got %d", m.EventCount)
	}
	if m.DebtByReason["daily_target_shortfall"] != 1 {
		t.Errorf("unexpected debt breakdown %v", m.DebtByReason)
	}
}

func TestGetMetricsDisabled(t *testing.T) {
	result := callTool(t, newTestServer(&fakePlanner{}, nil, nil), "get_metrics", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when metrics calculator is nil")
	}
}

func TestGetAlerts(t *testing.T) {
	ae := &fakeAlertEngine{
		alerts: []observability.Alert{{
			ID:          "time-debt",
			Condition:   "time_debt_high",
			Severity:    observability.SeverityLow,
			Message:     "150 minutes of work time are owed today",
			TriggeredAt: time.Now().UTC(),
		}},
	}
	result := callTool(t, newTestServer(&fakePlanner{}, nil, ae), "get_alerts", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out getAlertsOutput
	decodeResult(t, result, &out)
	if out.Count != 1 || out.Alerts[0].Condition != "time_debt_high" {
		t.Errorf("unexpected alerts %+v", out)
	}
}

func TestGetAlertsDisabled(t *testing.T) {
	result := callTool(t, newTestServer(&fakePlanner{}, nil, nil), "get_alerts", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when alert engine is nil")
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"7d", false},
		{"30d", false},
		{"24h", false},
		{"1h", false},
		{"", true},
		{"x", true},
		{"7x", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseSince(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSince(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
