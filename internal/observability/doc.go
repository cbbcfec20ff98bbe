// Package observability provides event logging, metrics calculation and
// alerting for Pulse. Events are persisted as JSON Lines (JSONL) and metrics
// and alerts are derived on demand from the event log.
package observability
