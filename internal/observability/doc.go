// Package observability provides logging, metrics, and context helpers for
// the paper recommendation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for HTTP traffic, external searches, candidate
//     aggregation, and generative judge calls
//   - Context helpers for propagating the request ID
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("similarity run started")
//
// # Metrics
//
// Initialize metrics and record pipeline activity:
//
//	metrics := observability.NewMetrics("paper_recommendation")
//	metrics.ObserveSearch(observability.QuerySimilarity, elapsed, err)
//	metrics.ObserveJudgeCall(observability.JudgeOpRank, elapsed, err)
//
// # Context Helpers
//
// Store and retrieve the request ID:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - mode: Pipeline mode (similarity, recommendation)
//   - query: External search query
//   - source: Paper source (library, semantic_scholar)
//   - paper_id: Paper identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
