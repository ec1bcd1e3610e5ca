// Package notify publishes run transition events to NATS subjects so the
// guardian-notification service (SMS/push delivery, out of scope here) can
// consume them.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"schoolbus_tracker/internal/tracker"
)

// PublisherMetrics is the narrow slice of the metrics collector the
// publisher needs.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// NATSNotifier publishes each tracker.Event as JSON on
// "runs.<route>.<event-type>".
type NATSNotifier struct {
	nc      *nats.Conn
	metrics PublisherMetrics
}

func NewNATSNotifier(url string, m PublisherMetrics) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("schoolbus-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logrus.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logrus.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logrus.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSNotifier{nc: nc, metrics: m}, nil
}

func (p *NATSNotifier) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// Notify implements tracker.Notifier. Publish failures are logged, never
// surfaced: notification delivery must not block a check-in.
func (p *NATSNotifier) Notify(e tracker.Event) {
	subject := fmt.Sprintf("runs.%s.%s", subjectToken(e.RouteID), subjectToken(string(e.Type)))
	b, err := json.Marshal(e)
	if err != nil {
		logrus.WithError(err).Error("nats: marshal run event")
		return
	}
	if err := p.nc.Publish(subject, b); err != nil {
		if p.metrics != nil {
			p.metrics.NATSPublishErrInc()
		}
		logrus.WithError(err).WithField("subject", subject).Error("nats: publish run event")
		return
	}
	if p.metrics != nil {
		p.metrics.NATSPublishedInc()
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
