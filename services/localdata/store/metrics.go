// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "almalink_store_ops_total",
		Help: "Total store operations by op and outcome",
	}, []string{"op", "outcome"})

	storeSeeds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "almalink_store_seeds_total",
		Help: "Total keys seeded from a default factory",
	})

	storeCorruptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "almalink_store_corruption_recovered_total",
		Help: "Total corrupted values discarded and treated as absent",
	})

	storeOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "almalink_store_op_latency_seconds",
		Help:    "Store operation latency",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"op"})
)
