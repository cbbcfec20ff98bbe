// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the Pulse decision engines as tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"github.com/wesellis/pulse-activity-tracker/internal/observability"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
)

// Server wraps the planner and observability services and exposes them as
// MCP tools.
type Server struct {
	server      *gomcp.Server
	planner     core.Planner
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	now         func() time.Time
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be nil
// if observability is disabled.
func NewServer(planner core.Planner, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		planner:     planner,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		now:         time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "pulse", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type atInput struct {
	At string `json:"at,omitempty" jsonschema:"evaluation time in RFC3339. Defaults to now."`
}

type suggestionOutput struct {
	Text              string  `json:"text"`
	Category          string  `json:"category"`
	Confidence        float64 `json:"confidence"`
	Priority          string  `json:"priority"`
	PatternKind       string  `json:"pattern_kind"`
	PatternSignature  string  `json:"pattern_signature"`
	PatternConfidence float64 `json:"pattern_confidence"`
	RecencyBoost      float64 `json:"recency_boost"`
}

type getSuggestionsOutput struct {
	Suggestions []suggestionOutput `json:"suggestions"`
	Count       int                `json:"count"`
	PatternsAt  string             `json:"patterns_built_at,omitempty"`
}

type proposeCompensationInput struct {
	Minutes int      `json:"minutes" jsonschema:"required,debt in minutes; zero or negative means a credit"`
	Reason  string   `json:"reason,omitempty" jsonschema:"why the debt arose"`
	Hour    *int     `json:"hour,omitempty" jsonschema:"current hour of day 0-23. Defaults to the current hour."`
	Energy  *float64 `json:"energy,omitempty" jsonschema:"current energy level 0-1. Defaults to the configured energy curve."`
}

type optionOutput struct {
	Kind                string  `json:"kind"`
	AmountPerOccurrence int     `json:"amount_per_occurrence"`
	Occurrences         int     `json:"occurrences"`
	Schedule            []int   `json:"schedule"`
	RankScore           float64 `json:"rank_score"`
	Description         string  `json:"description"`
}

type proposeCompensationOutput struct {
	Options []optionOutput `json:"options"`
	Count   int            `json:"count"`
}

type detectCompletionsOutput struct {
	TodoIDs []string `json:"todo_ids"`
	Count   int      `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	Rebuilds              int            `json:"rebuilds"`
	RebuildFailures       int            `json:"rebuild_failures"`
	PatternCount          int            `json:"pattern_count"`
	SuggestionRuns        int            `json:"suggestion_runs"`
	SuggestionsGenerated  int            `json:"suggestions_generated"`
	CompensationsProposed int            `json:"compensations_proposed"`
	DebtByReason          map[string]int `json:"debt_by_reason"`
	TodosCompleted        int            `json:"todos_completed"`
	EventCount            int            `json:"event_count"`
	LastRebuild           string         `json:"last_rebuild,omitempty"`
	OldestEvent           string         `json:"oldest_event,omitempty"`
	NewestEvent           string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_suggestions",
		Description: "Suggest todos for today from learned activity patterns, ordered by confidence.",
	}, s.handleGetSuggestions)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "propose_compensation",
		Description: "Propose ranked ways to make up owed work time (extend today, start early tomorrow, distribute, reduce break).",
	}, s.handleProposeCompensation)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "detect_completions",
		Description: "List IDs of open todos that today's activity suggests are finished. Does not mark them done.",
	}, s.handleDetectCompletions)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: rebuilds, suggestions, compensations and completed todos.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (failing rebuilds, stale patterns, high time debt).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleGetSuggestions(ctx context.Context, _ *gomcp.CallToolRequest, input atInput) (*gomcp.CallToolResult, getSuggestionsOutput, error) {
	empty := getSuggestionsOutput{Suggestions: []suggestionOutput{}}
	now, err := s.parseAt(input.At)
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}

	suggestions, err := s.planner.Suggest(ctx, now)
	if err != nil {
		return errorResult(fmt.Sprintf("generating suggestions: %s", err)), empty, nil
	}

	out := getSuggestionsOutput{
		Suggestions: make([]suggestionOutput, len(suggestions)),
		Count:       len(suggestions),
	}
	for i, sg := range suggestions {
		out.Suggestions[i] = suggestionToOutput(sg)
	}
	if snap := s.planner.Snapshot(); !snap.BuiltAt.IsZero() {
		out.PatternsAt = snap.BuiltAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleProposeCompensation(ctx context.Context, _ *gomcp.CallToolRequest, input proposeCompensationInput) (*gomcp.CallToolResult, proposeCompensationOutput, error) {
	empty := proposeCompensationOutput{Options: []optionOutput{}}
	now := s.now()

	hour := now.Hour()
	if input.Hour != nil {
		hour = *input.Hour
	}
	if input.Energy != nil && (*input.Energy < 0 || *input.Energy > 1) {
		return errorResult(fmt.Sprintf("energy %v must be between 0 and 1", *input.Energy)), empty, nil
	}

	if err := core.ValidateDebtAmount(input.Minutes); err != nil {
		return errorResult(err.Error()), empty, nil
	}

	event := models.TimeDebtEvent{AmountMinutes: input.Minutes, Reason: input.Reason, DetectedAt: now}
	options, err := s.planner.Compensate(ctx, event, hour, input.Energy)
	if err != nil {
		return errorResult(fmt.Sprintf("proposing compensation: %s", err)), empty, nil
	}

	out := proposeCompensationOutput{
		Options: make([]optionOutput, len(options)),
		Count:   len(options),
	}
	for i, o := range options {
		out.Options[i] = optionToOutput(o)
	}
	return nil, out, nil
}

func (s *Server) handleDetectCompletions(ctx context.Context, _ *gomcp.CallToolRequest, input atInput) (*gomcp.CallToolResult, detectCompletionsOutput, error) {
	empty := detectCompletionsOutput{TodoIDs: []string{}}
	now, err := s.parseAt(input.At)
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}

	ids, err := s.planner.DetectCompletions(ctx, now)
	if err != nil {
		return errorResult(fmt.Sprintf("detecting completions: %s", err)), empty, nil
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, detectCompletionsOutput{TodoIDs: ids, Count: len(ids)}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		Rebuilds:              metrics.Rebuilds,
		RebuildFailures:       metrics.RebuildFailures,
		PatternCount:          metrics.PatternCount,
		SuggestionRuns:        metrics.SuggestionRuns,
		SuggestionsGenerated:  metrics.SuggestionsGenerated,
		CompensationsProposed: metrics.CompensationsProposed,
		DebtByReason:          metrics.DebtByReason,
		TodosCompleted:        metrics.TodosCompleted,
		EventCount:            metrics.EventCount,
	}
	if out.DebtByReason == nil {
		out.DebtByReason = make(map[string]int)
	}
	if metrics.LastRebuild != nil {
		out.LastRebuild = metrics.LastRebuild.Format(time.RFC3339)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func (s *Server) parseAt(at string) (time.Time, error) {
	if at == "" {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid at %q: expected RFC3339", at)
	}
	return t, nil
}

func suggestionToOutput(s models.Suggestion) suggestionOutput {
	return suggestionOutput{
		Text:              s.Text,
		Category:          string(s.Category),
		Confidence:        s.Confidence,
		Priority:          string(s.Priority),
		PatternKind:       string(s.Source.Kind),
		PatternSignature:  s.Source.Signature,
		PatternConfidence: s.Source.Confidence,
		RecencyBoost:      s.RecencyBoost,
	}
}

func optionToOutput(o models.CompensationOption) optionOutput {
	schedule := o.Schedule
	if schedule == nil {
		schedule = []int{}
	}
	return optionOutput{
		Kind:                string(o.Kind),
		AmountPerOccurrence: o.AmountPerOccurrence,
		Occurrences:         o.Occurrences,
		Schedule:            schedule,
		RankScore:           o.RankScore,
		Description:         o.Description,
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{DebtByReason: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
