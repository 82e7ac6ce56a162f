// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Argument Resolution
// =============================================================================

var (
	// resolutionsTotal counts finished resolutions.
	// Labels: command, outcome (resolved, aborted, declined, error)
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooman",
		Subsystem: "intent",
		Name:      "resolutions_total",
		Help:      "Total argument resolutions by command and outcome",
	}, []string{"command", "outcome"})

	// promptsTotal counts questions put to the user.
	// Labels: kind (recovery, retry, confirmation)
	promptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooman",
		Subsystem: "intent",
		Name:      "prompts_total",
		Help:      "Total interactive prompts by kind",
	}, []string{"kind"})

	// unclaimedTokensTotal counts tokens no mediator claimed.
	// Labels: command
	unclaimedTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooman",
		Subsystem: "intent",
		Name:      "unclaimed_tokens_total",
		Help:      "Total tokens left unclaimed after all commit passes",
	}, []string{"command"})

	// resolveDurationSeconds measures resolution time, prompts included.
	// Labels: command
	resolveDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hooman",
		Subsystem: "intent",
		Name:      "resolve_duration_seconds",
		Help:      "Argument resolution latency including time spent waiting on prompts",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 5, 30, 120},
	}, []string{"command"})
)

// recordResolution records a finished resolution.
//
// Inputs:
//   - command: Canonical command name.
//   - outcome: How the resolution ended.
//   - unclaimed: Tokens left in the chain.
//   - durationSec: Wall time in seconds.
func recordResolution(command string, outcome Outcome, unclaimed int, durationSec float64) {
	resolutionsTotal.WithLabelValues(command, string(outcome)).Inc()
	resolveDurationSeconds.WithLabelValues(command).Observe(durationSec)
	if unclaimed > 0 {
		unclaimedTokensTotal.WithLabelValues(command).Add(float64(unclaimed))
	}
}

// recordPrompt records one question put to the user.
func recordPrompt(kind string) {
	promptsTotal.WithLabelValues(kind).Inc()
}
