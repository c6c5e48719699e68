// Package strixwire assembles the wire layer of a game server: logger, plugin
// manager, transform pipeline and packer, all configured from one WireCfg.
package strixwire

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/linchenxuan/strixwire/admin"
	"github.com/linchenxuan/strixwire/config"
	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/metrics"
	"github.com/linchenxuan/strixwire/metrics/prometheus"
	"github.com/linchenxuan/strixwire/network/message"
	"github.com/linchenxuan/strixwire/network/packer"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/network/serializer/compress"
	"github.com/linchenxuan/strixwire/network/serializer/crypt"
	"github.com/linchenxuan/strixwire/plugin"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// App is the assembled wire layer.
type App struct {
	Cfg           *config.WireCfg
	Logger        *log.WireLogger
	PluginManager *plugin.Manager
	Packer        *packer.Packer
	// Tag is the default transform tag from the serializer section.
	Tag serializer.TransformTag
}

// RegisterFactories installs every built-in plugin factory on mgr.
func RegisterFactories(mgr *plugin.Manager) {
	mgr.RegisterFactory(compress.NewZstdFactory())
	mgr.RegisterFactory(compress.NewS2Factory())
	mgr.RegisterFactory(crypt.NewNoneFactory())
	mgr.RegisterFactory(crypt.NewChaCha20Poly1305Factory())
	mgr.RegisterFactory(crypt.NewSM4GCMFactory())
	mgr.RegisterFactory(prometheus.NewFactory())
}

// NewApp builds an App from cfg. A nil cfg uses config.Default. The packer is
// not ready until Init or InitFromConfig succeeds.
func NewApp(cfg *config.WireCfg) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tag, err := cfg.Tag()
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger(cfg.Log)
	log.SetDefaultLogger(logger)

	mgr := plugin.NewManager()
	RegisterFactories(mgr)
	if err := mgr.SetupPlugins(cfg.Plugin); err != nil {
		mgr.DestroyPlugins()
		return nil, err
	}

	ser, err := serializer.FromPlugins(mgr, cfg.Serializer.Compressor, cfg.Serializer.Encryptor)
	if err != nil {
		mgr.DestroyPlugins()
		return nil, err
	}

	opts := []packer.Option{packer.WithSerializer(ser)}
	if cfg.DropLog.Every > 0 {
		opts = append(opts, packer.WithDropLogLimit(cfg.DropLog.Every, cfg.DropLog.Burst))
	}

	app := &App{
		Cfg:           cfg,
		Logger:        logger,
		PluginManager: mgr,
		Packer:        packer.New(opts...),
		Tag:           tag,
	}
	logger.Info().
		Str("compressor", cfg.Serializer.Compressor).
		Str("encryptor", cfg.Serializer.Encryptor).
		Str("tag", tag.String()).
		Msg("strixwire application initialized")
	return app, nil
}

// Init builds the registry from files with the registry section's options.
func (a *App) Init(files ...protoreflect.FileDescriptor) (*message.Registry, error) {
	return a.Packer.Init(a.Cfg.Registry.BuildOptions(), files...)
}

// InitFromConfig loads the configured descriptor sets and builds the registry.
func (a *App) InitFromConfig() (*message.Registry, error) {
	if len(a.Cfg.Registry.SchemaFiles) == 0 {
		return nil, errors.New("registry: no schema files configured")
	}
	files, err := message.LoadDescriptorSets(a.Cfg.Registry.SchemaFiles...)
	if err != nil {
		return nil, err
	}
	return a.Init(files...)
}

// MetricsHandler returns the scrape handler of the configured prometheus
// plugin, or nil when none is set up.
func (a *App) MetricsHandler() http.Handler {
	for _, name := range []string{"prometheus", plugin.DefaultInsName} {
		p, err := a.PluginManager.GetPlugin(plugin.Metrics, name)
		if err != nil {
			continue
		}
		if rep, ok := p.(*metrics.PrometheusReporter); ok {
			return rep.Handler()
		}
	}
	return nil
}

// Admin returns an admin server over the packer.
func (a *App) Admin() *admin.Server {
	return admin.New(a.Packer,
		admin.WithMetricsHandler(a.MetricsHandler()),
		admin.WithPlugins(a.PluginManager),
	)
}

// ServeAdmin runs the admin server on the configured address until ctx is done.
func (a *App) ServeAdmin(ctx context.Context) error {
	if a.Cfg.Admin.Addr == "" {
		return fmt.Errorf("admin: no listen address configured")
	}
	return a.Admin().Serve(ctx, a.Cfg.Admin.Addr)
}

// Stop releases plugins and flushes the logger.
func (a *App) Stop() {
	a.Logger.Info().Msg("strixwire application shutting down")
	a.PluginManager.DestroyPlugins()
	a.Logger.Close()
}
