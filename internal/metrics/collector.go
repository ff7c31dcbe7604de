package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

const namespace = "wakemeup"

// StatusFunc returns the snapshot to export.
type StatusFunc func() tracking.Snapshot

// Collector implements prometheus.Collector over a session snapshot.
type Collector struct {
	status StatusFunc

	state                *prometheus.Desc
	condition            *prometheus.Desc
	distance             *prometheus.Desc
	radius               *prometheus.Desc
	hasFiredOnce         *prometheus.Desc
	snoozeRemaining      *prometheus.Desc
	samples              *prometheus.Desc
	positionErrors       *prometheus.Desc
	triggers             *prometheus.Desc
	snoozes              *prometheus.Desc
	notificationFailures *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from status.
func NewCollector(status StatusFunc) *Collector {
	return &Collector{
		status: status,
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "state"),
			"Current session state; the series of the active state is 1.",
			[]string{"state"}, nil,
		),
		condition: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "condition"),
			"Latest notable condition; the series of the active condition is 1.",
			[]string{"condition"}, nil,
		),
		distance: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "distance_meters"),
			"Last evaluated distance to the target.",
			nil, nil,
		),
		radius: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "radius_meters"),
			"Alarm radius of the target.",
			nil, nil,
		),
		hasFiredOnce: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "has_fired_once"),
			"Whether the alarm has fired in the current armed period.",
			nil, nil,
		),
		snoozeRemaining: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snooze_remaining_seconds"),
			"Seconds until a snoozed alarm resumes.",
			nil, nil,
		),
		samples: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "position", "samples_total"),
			"Position samples received.",
			nil, nil,
		),
		positionErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "position", "errors_total"),
			"Position stream errors.",
			nil, nil,
		),
		triggers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alarm", "triggers_total"),
			"Alarm triggers, snooze re-triggers included.",
			nil, nil,
		),
		snoozes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alarm", "snoozes_total"),
			"Alarm snoozes.",
			nil, nil,
		),
		notificationFailures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "notification", "failures_total"),
			"Failed notification dispatches.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.condition
	ch <- c.distance
	ch <- c.radius
	ch <- c.hasFiredOnce
	ch <- c.snoozeRemaining
	ch <- c.samples
	ch <- c.positionErrors
	ch <- c.triggers
	ch <- c.snoozes
	ch <- c.notificationFailures
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.status()

	for _, state := range geofence.SessionStates {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, boolValue(s.State == state), state.String())
	}

	for _, condition := range geofence.Conditions {
		ch <- prometheus.MustNewConstMetric(c.condition, prometheus.GaugeValue, boolValue(s.Condition == condition), condition.String())
	}

	if s.LastDistanceMeters != nil {
		ch <- prometheus.MustNewConstMetric(c.distance, prometheus.GaugeValue, *s.LastDistanceMeters)
	}

	if s.SnoozeRemainingSeconds != nil {
		ch <- prometheus.MustNewConstMetric(c.snoozeRemaining, prometheus.GaugeValue, float64(*s.SnoozeRemainingSeconds))
	}

	ch <- prometheus.MustNewConstMetric(c.radius, prometheus.GaugeValue, float64(s.Target.RadiusMeters))
	ch <- prometheus.MustNewConstMetric(c.hasFiredOnce, prometheus.GaugeValue, boolValue(s.HasFiredOnce))
	ch <- prometheus.MustNewConstMetric(c.samples, prometheus.CounterValue, float64(s.Samples))
	ch <- prometheus.MustNewConstMetric(c.positionErrors, prometheus.CounterValue, float64(s.PositionErrors))
	ch <- prometheus.MustNewConstMetric(c.triggers, prometheus.CounterValue, float64(s.Triggers))
	ch <- prometheus.MustNewConstMetric(c.snoozes, prometheus.CounterValue, float64(s.Snoozes))
	ch <- prometheus.MustNewConstMetric(c.notificationFailures, prometheus.CounterValue, float64(s.NotificationFailures))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
