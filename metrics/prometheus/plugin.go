// Package prometheus registers the Prometheus metrics reporter as a plugin.
package prometheus

import (
	"errors"

	"github.com/linchenxuan/strixwire/metrics"
	"github.com/linchenxuan/strixwire/plugin"
)

type factory struct{}

var _ plugin.Factory = (*factory)(nil)

// NewFactory creates the prometheus reporter factory.
func NewFactory() plugin.Factory {
	return &factory{}
}

// Type returns the plugin type.
func (f *factory) Type() plugin.Type {
	return plugin.Metrics
}

// Name returns the name used in plugin configuration.
func (f *factory) Name() string {
	return "prometheus"
}

// ConfigType returns the config struct populated by the manager.
func (f *factory) ConfigType() any {
	return &metrics.PrometheusReporterConfig{}
}

// Setup creates a reporter and registers it with the metrics package.
func (f *factory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*metrics.PrometheusReporterConfig)
	if !ok {
		return nil, errors.New("prometheus setup failed: invalid config type")
	}
	p := metrics.NewPrometheusReporter(cfg)
	metrics.AddReporter(p)
	return p, nil
}

// Destroy unregisters the reporter.
func (f *factory) Destroy(p plugin.Plugin) {
	if rep, ok := p.(*metrics.PrometheusReporter); ok && rep != nil {
		metrics.RemoveReporter(rep)
	}
}
