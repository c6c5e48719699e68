package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/linchenxuan/strixwire/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricType int

const (
	_metricTypeCounter metricType = iota
	_metricTypeGauge
)

type metricOpt struct {
	namespace   string
	subsystem   string
	name        string
	constLabels map[string]string
}

func newMetricOpt(rc *Record, namespace string, extLabels map[string]string) *metricOpt {
	opts := &metricOpt{
		namespace:   namespace,
		subsystem:   strings.ReplaceAll(rc.Metrics().Group(), ".", "_"),
		name:        strings.ReplaceAll(rc.Metrics().Name(), ".", "_"),
		constLabels: make(map[string]string, len(rc.Dimensions())+len(extLabels)),
	}
	for k, v := range extLabels {
		opts.constLabels[k] = v
	}
	for k, v := range rc.Dimensions() {
		opts.constLabels[k] = v
	}
	return opts
}

// promGauge tracks the state needed to apply max and average policies on top of a gauge.
type promGauge struct {
	prometheus.Gauge
	value float64
	cnt   int
	set   bool
}

func (p *promGauge) merge(rc *Record) error {
	switch rc.Metrics().Policy() {
	case Policy_Set:
		p.Set(float64(rc.Value()))
	case Policy_Sum:
		p.Add(float64(rc.Value()))
	case Policy_Max:
		if v := float64(rc.Value()); !p.set || v > p.value {
			p.value = v
			p.set = true
			p.Set(v)
		}
	case Policy_Stopwatch:
		v, c := rc.RawData()
		p.value += float64(v)
		p.cnt += c
		if p.cnt <= 0 {
			return fmt.Errorf("metrics(%s) count invalid", rc.Metrics().Name())
		}
		p.Set(p.value / float64(p.cnt))
	default:
		return fmt.Errorf("metrics(%s) policy invalid", rc.Metrics().Name())
	}
	return nil
}

type metricWrapper struct {
	m  prometheus.Collector
	mt metricType
}

func (m *metricWrapper) merge(rc *Record) {
	switch m.mt {
	case _metricTypeGauge:
		if err := m.m.(*promGauge).merge(rc); err != nil {
			log.Error().Err(err).Msg("prometheus merge")
		}
	case _metricTypeCounter:
		if v := float64(rc.Value()); v >= 0 {
			m.m.(prometheus.Counter).Add(v)
		}
	}
}

// PrometheusReporterConfig configures the Prometheus reporter.
type PrometheusReporterConfig struct {
	Tag        string            `mapstructure:"tag"`
	Namespace  string            `mapstructure:"namespace"`
	MetricPath string            `mapstructure:"metricPath"`
	ExtLabels  map[string]string `mapstructure:"extLabels"`
}

// PrometheusReporter converts records into Prometheus collectors on its own registry.
// Each distinct (group, name, dimensions) combination becomes one collector with
// the dimensions as constant labels.
type PrometheusReporter struct {
	cfg     *PrometheusReporterConfig
	reg     *prometheus.Registry
	mu      sync.Mutex
	metrics map[string]*metricWrapper
}

var _ Reporter = (*PrometheusReporter)(nil)

// NewPrometheusReporter creates a reporter. A nil cfg uses defaults.
func NewPrometheusReporter(cfg *PrometheusReporterConfig) *PrometheusReporter {
	if cfg == nil {
		cfg = &PrometheusReporterConfig{}
	}
	if cfg.MetricPath == "" {
		cfg.MetricPath = "/metrics"
	}
	return &PrometheusReporter{
		cfg:     cfg,
		reg:     prometheus.NewRegistry(),
		metrics: map[string]*metricWrapper{},
	}
}

// FactoryName implements plugin.Plugin.
func (x *PrometheusReporter) FactoryName() string {
	return "prometheus"
}

// Config returns the reporter configuration.
func (x *PrometheusReporter) Config() *PrometheusReporterConfig {
	return x.cfg
}

// Gatherer exposes the reporter's registry for scraping or pushing.
func (x *PrometheusReporter) Gatherer() prometheus.Gatherer {
	return x.reg
}

// Handler serves the reporter's registry in the Prometheus exposition format.
func (x *PrometheusReporter) Handler() http.Handler {
	return promhttp.HandlerFor(x.reg, promhttp.HandlerOpts{Registry: x.reg})
}

// Report merges one record into its collector, creating the collector on first use.
func (x *PrometheusReporter) Report(r Record) {
	x.mu.Lock()
	defer x.mu.Unlock()

	key := x.getFullName(&r)
	if m, ok := x.metrics[key]; ok {
		m.merge(&r)
		return
	}

	o := newMetricOpt(&r, x.cfg.Namespace, x.cfg.ExtLabels)
	var w *metricWrapper
	switch r.Metrics().(type) {
	case Counter:
		w = &metricWrapper{
			m: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: o.namespace, Subsystem: o.subsystem, Name: o.name, ConstLabels: o.constLabels,
				Help: r.Metrics().Name(),
			}),
			mt: _metricTypeCounter,
		}
	case Gauge, StopWatch:
		w = &metricWrapper{
			m: &promGauge{Gauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: o.namespace, Subsystem: o.subsystem, Name: o.name, ConstLabels: o.constLabels,
				Help: r.Metrics().Name(),
			})},
			mt: _metricTypeGauge,
		}
	default:
		log.Error().Str("metrictype", fmt.Sprintf("%T", r.Metrics())).Msg("prometheus report unknown metric")
		return
	}

	if err := x.reg.Register(w.m); err != nil {
		log.Error().Err(err).Str("metric", key).Msg("prometheus register")
		return
	}
	x.metrics[key] = w
	w.merge(&r)
}

func (x *PrometheusReporter) getFullName(rc *Record) string {
	var sb strings.Builder
	sb.WriteString(rc.Metrics().Group())
	sb.WriteString("*")
	sb.WriteString(rc.Metrics().Name())
	sb.WriteString("*")

	keys := make([]string, 0, len(rc.Dimensions()))
	for k := range rc.Dimensions() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(":")
		sb.WriteString(rc.Dimensions()[k])
		sb.WriteString(",")
	}
	return sb.String()
}
