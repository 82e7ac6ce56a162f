// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package operator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// translationsTotal counts lines handed to Translate.
	// Labels: outcome (executed, cancelled, declined, not_found, help, empty,
	// handler_error, error)
	translationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooman",
		Subsystem: "intent",
		Name:      "translations_total",
		Help:      "Total translated lines by outcome",
	}, []string{"outcome"})
)

func recordTranslation(outcome Outcome) {
	translationsTotal.WithLabelValues(string(outcome)).Inc()
}
