// Package datastore persists scan results. Sinks share one contract: a
// write either lands or reports failure in its SinkResult, and a failing
// sink must never abort the scan that produced the data.
package datastore

import (
	"context"

	"github.com/vulnwatch/webscan/internal/models"
)

// SinkResult reports where a write landed and whether it succeeded.
type SinkResult struct {
	OK       bool
	Location string
	Err      error
}

// ResultSink stores scan output and progress updates.
type ResultSink interface {
	SaveResults(ctx context.Context, scanID string, bundle *models.ResultBundle) SinkResult
	UpdateProgress(ctx context.Context, scanID string, percent float64, message string) SinkResult
}

func failure(location string, err error) SinkResult {
	return SinkResult{Location: location, Err: err}
}

func success(location string) SinkResult {
	return SinkResult{OK: true, Location: location}
}
