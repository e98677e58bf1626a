package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dualstep"

var (
	motorLabels = []string{"motor"}

	speedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "speed_steps_per_second"),
		"Current commanded step rate.", motorLabels, nil,
	)
	targetDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "target_speed_steps_per_second"),
		"Speed the ramp is converging to, including boost.", motorLabels, nil,
	)
	positionDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "position_steps"),
		"Signed step count since the last reset.", motorLabels, nil,
	)
	stepsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "steps_total"),
		"Steps generated in either direction.", motorLabels, nil,
	)
	runningDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "running"),
		"1 when the motor is enabled.", motorLabels, nil,
	)
	boostDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "motor", "boost_active"),
		"1 while a boost is active.", motorLabels, nil,
	)
	driftDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "sync", "drift_steps"),
		"Absolute difference between the two positions.", nil, nil,
	)
	uptimeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "uptime_seconds"),
		"Time since the controller started.", nil, nil,
	)
	commandsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "commands_total"),
		"Command lines received.", nil, nil,
	)
	errorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "command_errors_total"),
		"Command lines answered with ERR.", nil, nil,
	)
)

// collector reads the Source on every scrape
type collector struct {
	src Source
}

func newCollector(src Source) prometheus.Collector {
	return &collector{src}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		speedDesc, targetDesc, positionDesc, stepsDesc, runningDesc, boostDesc,
		driftDesc, uptimeDesc, commandsDesc, errorsDesc,
	} {
		ch <- d
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	status := c.src.Status()
	for _, m := range status.Motors {
		motor := m.ID.String()
		ch <- prometheus.MustNewConstMetric(speedDesc, prometheus.GaugeValue, m.CurrentSpeed, motor)
		ch <- prometheus.MustNewConstMetric(targetDesc, prometheus.GaugeValue, m.TargetSpeed, motor)
		ch <- prometheus.MustNewConstMetric(positionDesc, prometheus.GaugeValue, float64(m.Position), motor)
		ch <- prometheus.MustNewConstMetric(stepsDesc, prometheus.CounterValue, float64(m.Steps), motor)
		ch <- prometheus.MustNewConstMetric(runningDesc, prometheus.GaugeValue, boolValue(m.Running), motor)
		ch <- prometheus.MustNewConstMetric(boostDesc, prometheus.GaugeValue, boolValue(m.BoostActive), motor)
	}
	ch <- prometheus.MustNewConstMetric(driftDesc, prometheus.GaugeValue, float64(status.Drift))
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, status.UptimeSeconds)

	stats := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(commandsDesc, prometheus.CounterValue, float64(stats.Commands))
	ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(stats.Errors))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
