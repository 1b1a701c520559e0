// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "almalink_remote_requests_total",
		Help: "Total remote calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "almalink_remote_retries_total",
		Help: "Total retried attempts by endpoint",
	}, []string{"endpoint"})

	remoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "almalink_remote_latency_seconds",
		Help:    "End-to-end remote call latency including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
