// ABOUTME: Prometheus collectors for posting, refresh, and propagation activity.
// ABOUTME: Registered on the default registry and exposed via the admin surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TweetsPosted counts successfully posted tweets.
	TweetsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tern_tweets_posted_total",
		Help: "Number of tweets successfully posted.",
	})

	// PostFailures counts failed post attempts.
	PostFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tern_post_failures_total",
		Help: "Number of failed post attempts.",
	})

	// TokenRefreshes counts refresh-token grants by outcome.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tern_token_refresh_total",
		Help: "Number of refresh-token grants by outcome.",
	}, []string{"outcome"})

	// PropagationFailures counts failed config-update propagations.
	PropagationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tern_config_propagation_failures_total",
		Help: "Number of refresh-token propagation calls that failed.",
	})

	// MediaUploadFailures counts media items that could not be uploaded.
	MediaUploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tern_media_upload_failures_total",
		Help: "Number of media items skipped due to resolve or upload errors.",
	})

	// PacingWaitSeconds observes how long requests waited on the send pacer.
	PacingWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tern_pacing_wait_seconds",
		Help:    "Time requests spent suspended on the per-identity send pacer.",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 10),
	})
)
