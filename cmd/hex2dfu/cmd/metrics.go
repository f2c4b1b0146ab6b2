package cmd

import (
	"github.com/anupcshan/hex2dfu/convert"
	"github.com/prometheus/client_golang/prometheus"
)

type conversionMetrics struct {
	registry *prometheus.Registry

	records    *prometheus.GaugeVec
	skipped    prometheus.Gauge
	programmed prometheus.Gauge
	discarded  prometheus.Gauge
	crc14      prometheus.Gauge
	success    prometheus.Gauge
	lastRun    prometheus.Gauge
}

func newConversionMetrics() *conversionMetrics {
	m := &conversionMetrics{
		registry: prometheus.NewRegistry(),
	}

	m.records = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "records",
		Help:      "Intel HEX records read, by record type",
	}, []string{"type"})
	m.registry.MustRegister(m.records)

	m.skipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "skipped_lines",
		Help:      "Input lines that were not a recognised record",
	})
	m.registry.MustRegister(m.skipped)

	m.programmed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "programmed_bytes",
		Help:      "Bytes of program memory written by the input",
	})
	m.registry.MustRegister(m.programmed)

	m.discarded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "discarded_bytes",
		Help:      "Bytes addressed past the end of program memory",
	})
	m.registry.MustRegister(m.discarded)

	m.crc14 = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "crc14",
		Help:      "Bootloader CRC-14 of the application",
	})
	m.registry.MustRegister(m.crc14)

	m.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "last_conversion_success",
		Help:      "1 if the last conversion produced a DFU image",
	})
	m.registry.MustRegister(m.success)

	m.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hex2dfu",
		Name:      "last_conversion_timestamp_seconds",
		Help:      "Unix time of the last conversion",
	})
	m.registry.MustRegister(m.lastRun)

	return m
}

func (m *conversionMetrics) observe(res *convert.Result, err error) {
	m.lastRun.SetToCurrentTime()

	if err == nil {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}

	if res == nil {
		return
	}

	for t, n := range res.Stats.Records {
		m.records.WithLabelValues(t.String()).Set(float64(n))
	}
	m.skipped.Set(float64(res.Stats.SkippedLines))
	m.programmed.Set(float64(res.Image.Programmed()))
	m.discarded.Set(float64(res.Image.Discarded()))
	m.crc14.Set(float64(res.CRC14))
}

// writeMetrics records one conversion in a Prometheus textfile, for the node
// exporter's textfile collector.
func writeMetrics(path string, res *convert.Result, err error) error {
	m := newConversionMetrics()
	m.observe(res, err)
	return prometheus.WriteToTextfile(path, m.registry)
}
