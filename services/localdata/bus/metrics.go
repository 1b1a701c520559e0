// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "almalink_bus_published_total",
		Help: "Total events published by topic",
	}, []string{"topic"})

	busDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "almalink_bus_delivered_total",
		Help: "Total handler deliveries by topic and channel",
	}, []string{"topic", "channel"})

	busSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "almalink_bus_self_writes_suppressed_total",
		Help: "Total passive notifications suppressed as same-context echoes",
	})
)
