package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Calls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablebridge",
		Name:      "calls_total",
		Help:      "Bridge operations by name and outcome.",
	}, []string{"op", "outcome"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablebridge",
		Name:      "binding_resolutions_total",
		Help:      "Successful foreign symbol resolutions.",
	}, []string{"symbol"})

	PluginRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablebridge",
		Name:      "plugin_registrations_total",
		Help:      "Plugin registrations by outcome.",
	}, []string{"outcome"})

	IngestedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablebridge",
		Name:      "ingested_rows_total",
		Help:      "Rows appended to stream tables.",
	}, []string{"topic"})
)

// ObserveCall records one bridge call.
func ObserveCall(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Calls.WithLabelValues(op, outcome).Inc()
}

func Expose(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
