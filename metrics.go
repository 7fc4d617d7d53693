package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// navigateRequests counts /navigate requests by outcome
	navigateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evacuation_navigate_requests_total",
		Help: "Navigation requests by outcome",
	}, []string{"outcome"})

	// searchDuration tracks A* latency
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evacuation_search_duration_seconds",
		Help:    "Hazard-aware search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
	})

	// searchExpanded tracks how many nodes each search popped
	searchExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evacuation_search_expanded_nodes",
		Help:    "Nodes expanded per search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	// snappedCoordinates counts start/goal coordinates moved onto the graph
	snappedCoordinates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evacuation_snapped_coordinates_total",
		Help: "Coordinates snapped to the nearest walkable cell",
	}, []string{"endpoint"}) // "start" or "goal"
)

// Request outcomes
const (
	outcomeOK          = "ok"
	outcomeNotFound    = "not_found"
	outcomeInvalid     = "invalid"
	outcomeUnreachable = "unreachable"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)
