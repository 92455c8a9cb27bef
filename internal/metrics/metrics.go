// Package metrics holds the process-wide Prometheus collectors, declared as
// package-level vars the way the teacher repo's capture pipeline does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bambucam_active_viewers",
		Help: "Number of viewers currently attached to any egress transport.",
	})

	FramesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bambucam_frames_published_total",
		Help: "Frames published to the latest-frame slot by the producer loop.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bambucam_frames_dropped_total",
		Help: "Frames dropped for exceeding the maximum frame size.",
	})

	RTPPacketsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bambucam_rtp_packets_evicted_total",
		Help: "TS packets evicted from the RTP egress's pacing ring before being sent.",
	})

	SourceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bambucam_source_errors_total",
		Help: "Errors returned by the frame source's NextFrame call.",
	})

	MJPEGSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bambucam_mjpeg_sessions",
		Help: "MJPEG viewer connections currently open.",
	})

	RTPPacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bambucam_rtp_packets_sent_total",
		Help: "RTP packets sent by the MPEG-TS egress pipeline.",
	})
)
