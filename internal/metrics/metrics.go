package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "headtrack_sessions_active",
		Help: "Relay sessions currently running",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_sessions_total",
		Help: "Relay sessions started",
	})

	SessionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headtrack_session_errors_total",
		Help: "Fatal session errors by kind",
	}, []string{"kind"})

	DatagramsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_datagrams_received_total",
		Help: "UDP datagrams read from the tracker",
	})

	RecordsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_records_decoded_total",
		Help: "OpenSee packets decoded and relayed",
	})

	PacketsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_packets_malformed_total",
		Help: "Reassembled buffers rejected by the decoder",
	})

	PartialsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_partial_packets_discarded_total",
		Help: "Partially assembled packets thrown away",
	})

	ReadTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_read_timeouts_total",
		Help: "Readiness waits that expired without data",
	})

	SinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headtrack_sink_send_errors_total",
		Help: "Failed OSC sends",
	})
)
