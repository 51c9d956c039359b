package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinebot",
		Name:      "commands_total",
		Help:      "Total number of bot commands received",
	}, []string{"command"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinebot",
		Name:      "resolutions_total",
		Help:      "Content resolutions by result",
	}, []string{"result"})

	TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinebot",
		Name:      "token_refreshes_total",
		Help:      "Guest token refreshes",
	})

	SelectionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinebot",
		Name:      "selection_rejections_total",
		Help:      "Callback actions rejected by the selection state machine",
	}, []string{"reason"})

	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinebot",
		Name:      "downloads_total",
		Help:      "Finished downloads by outcome",
	}, []string{"outcome"})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinebot",
		Name:      "download_duration_seconds",
		Help:      "Duration of the download pipeline including delivery",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 12),
	})

	ArtifactBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinebot",
		Name:      "artifact_bytes",
		Help:      "Size of produced artifacts",
		Buckets:   prometheus.ExponentialBuckets(16<<20, 2, 10),
	})

	ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinebot",
		Name:      "active_downloads",
		Help:      "Number of downloads currently running",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinebot",
		Name:      "http_request_duration_seconds",
		Help:      "Status server request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
