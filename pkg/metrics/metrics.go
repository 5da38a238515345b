// Package metrics exports probe outcomes in the Prometheus text format, for
// node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result is the outcome of one strategy.
type Result struct {
	Strategy string
	State    string
	ExitCode int
	Caught   bool
}

type collectors struct {
	caught   *prometheus.GaugeVec
	outcome  *prometheus.GaugeVec
	exitCode *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

func newCollectors(reg prometheus.Registerer) *collectors {
	c := &collectors{
		caught: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fptrap_fault_caught",
			Help: "1 if the floating-point overflow trap was delivered as SIGFPE and caught.",
		}, []string{"strategy"}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fptrap_probe_outcome",
			Help: "Final state of the probe, as a label set to 1.",
		}, []string{"strategy", "state"}),
		exitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fptrap_probe_exit_code",
			Help: "Exit status of the probe process, -1 if it was killed by a signal.",
		}, []string{"strategy"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fptrap_last_run_timestamp_seconds",
			Help: "Unix time of the last probe run.",
		}),
	}
	reg.MustRegister(c.caught, c.outcome, c.exitCode, c.lastRun)
	return c
}

func (c *collectors) observe(results []Result) {
	for _, r := range results {
		caught := 0.0
		if r.Caught {
			caught = 1
		}
		c.caught.WithLabelValues(r.Strategy).Set(caught)
		c.outcome.WithLabelValues(r.Strategy, r.State).Set(1)
		c.exitCode.WithLabelValues(r.Strategy).Set(float64(r.ExitCode))
	}
	c.lastRun.SetToCurrentTime()
}

// WriteTextfile writes results to path, atomically replacing it.
func WriteTextfile(path string, results []Result) error {
	reg := prometheus.NewRegistry()
	newCollectors(reg).observe(results)
	return prometheus.WriteToTextfile(path, reg)
}
