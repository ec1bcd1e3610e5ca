package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"schoolbus_tracker/internal/tracker"
)

// Collector owns its own registry so the /metrics endpoint exposes nothing
// but tracker series.
type Collector struct {
	reg *prometheus.Registry

	ActiveRuns prometheus.Gauge

	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter

	CheckIns     *prometheus.CounterVec // mode label: pickup|drop
	Absences     prometheus.Counter
	OTPFailures  prometheus.Counter
	DelayReports prometheus.Counter
	DelayMinutes prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_active_runs",
			Help: "Number of runs with unresolved roster entries.",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_runs_started_total",
			Help: "Total runs started.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_runs_completed_total",
			Help: "Total runs whose whole roster resolved.",
		}),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_checkins_total",
			Help: "Total students boarded or dropped.",
		}, []string{"mode"}),
		Absences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_absences_total",
			Help: "Total students marked absent.",
		}),
		OTPFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_otp_failures_total",
			Help: "Total failed verification code submissions.",
		}),
		DelayReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_delay_reports_total",
			Help: "Total delay reports applied to a stop.",
		}),
		DelayMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_delay_minutes_total",
			Help: "Total minutes of reported delay.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.ActiveRuns,
		c.RunsStarted, c.RunsCompleted,
		c.CheckIns, c.Absences, c.OTPFailures,
		c.DelayReports, c.DelayMinutes,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

// Notify makes the collector a tracker.Notifier: every run event moves the
// matching series.
func (c *Collector) Notify(e tracker.Event) {
	switch e.Type {
	case tracker.EventRunStarted:
		c.RunsStarted.Inc()
		c.ActiveRuns.Inc()
	case tracker.EventRunCompleted:
		c.RunsCompleted.Inc()
		c.ActiveRuns.Dec()
	case tracker.EventCheckIn:
		c.CheckIns.WithLabelValues(string(e.Mode)).Inc()
	case tracker.EventAbsent:
		c.Absences.Inc()
	case tracker.EventDelay:
		c.DelayReports.Inc()
		c.DelayMinutes.Add(float64(e.Minutes))
	}
}

// NATS hooks used by the notify package.
func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server error")
		}
	}()
	logrus.Infof("metrics listening on %s", addr)
	return srv
}
