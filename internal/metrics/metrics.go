// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssetCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "content_asset_cleanup_failures_total",
		Help: "Asset deletions that failed and were handed off for reaping.",
	}, []string{"operation"})

	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "content_posts_published_total",
		Help: "Posts that became published.",
	})

	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "content_like_toggles_total",
		Help: "Like toggles by resulting state.",
	}, []string{"state"})

	AssetsReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "content_assets_reaped_total",
		Help: "Orphaned assets processed by the worker, by outcome.",
	}, []string{"outcome"})
)
