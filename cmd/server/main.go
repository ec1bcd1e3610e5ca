package main

import (
	"log"
	"net/http"

	logrus "github.com/sirupsen/logrus"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/logger"
	"schoolbus_tracker/internal/metrics"
	"schoolbus_tracker/internal/middleware"
	"schoolbus_tracker/internal/notify"
	"schoolbus_tracker/internal/routes"
	"schoolbus_tracker/internal/tracker"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// Prometheus collector carries run gauges/counters and doubles as an
	// event sink. Served on its own listener so the API port stays clean.
	collector := metrics.NewCollector()
	metricsAddr := config.GetEnv("METRICS_ADDR", ":9100")
	collector.Serve(metricsAddr)

	// Live event fan-out: dispatcher websockets, audit rows, metrics, and
	// optionally NATS when a broker URL is configured.
	hub := controllers.NewRunHub()
	sinks := tracker.MultiNotifier{
		controllers.NewAuditNotifier(),
		hub,
		collector,
	}
	if url := config.GetEnv("NATS_URL", ""); url != "" {
		publisher, err := notify.NewNATSNotifier(url, collector)
		if err != nil {
			logrus.WithError(err).Warn("NATS unavailable, continuing without broker publishing")
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}

	registry := tracker.NewRunRegistry(sinks)
	controllers.InitRunTracker(registry, collector)
	controllers.InitRunHub(hub)

	// Setup Gin router
	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	port := config.GetEnv("PORT", "8080")
	log.Println("🚀 Server running at :" + port)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+port, handler))
}
