// Package config loads the process configuration from a TOML or YAML file.
//
// Files are first parsed into a generic map and then decoded with mapstructure,
// so both formats share the same keys. The `plugin` section is passed through
// untouched to plugin.Manager.SetupPlugins.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/network/message"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/network/transport"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Format names accepted by Parse.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// RegistryCfg configures the message registry.
type RegistryCfg struct {
	Suffixes         []string `mapstructure:"suffixes"`
	DeprecatedSuffix string   `mapstructure:"deprecatedSuffix"`
	// SchemaFiles are FileDescriptorSet files written by protoc --descriptor_set_out.
	SchemaFiles []string `mapstructure:"schemaFiles"`
}

// BuildOptions converts the section into registry build options.
func (c RegistryCfg) BuildOptions() message.BuildOptions {
	return message.BuildOptions{
		Suffixes:         c.Suffixes,
		DeprecatedSuffix: c.DeprecatedSuffix,
	}
}

// SerializerCfg names the plugins that back the transform pipeline.
type SerializerCfg struct {
	// Compressor is a compressor plugin name; empty disables compression.
	Compressor string `mapstructure:"compressor"`
	// Encryptor is an encryptor plugin name; empty disables encryption.
	Encryptor string `mapstructure:"encryptor"`
	// Tag is the default transform tag, e.g. "compressed|encrypted".
	Tag string `mapstructure:"tag"`
}

// DropLogCfg bounds how often dropped frames are logged.
type DropLogCfg struct {
	// Every is the refill interval of the drop-log limiter. Zero logs every drop.
	Every time.Duration `mapstructure:"every"`
	// Burst is how many drops may be logged at once. Must be positive when Every is set.
	Burst int `mapstructure:"burst"`
}

// AdminCfg configures the introspection HTTP server.
type AdminCfg struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `mapstructure:"addr"`
}

// WireCfg is the root of the configuration file.
type WireCfg struct {
	Log        *log.LogCfg      `mapstructure:"log"`
	Registry   RegistryCfg      `mapstructure:"registry"`
	Serializer SerializerCfg    `mapstructure:"serializer"`
	Transport  transport.Limits `mapstructure:"transport"`
	DropLog    DropLogCfg       `mapstructure:"dropLog"`
	Admin      AdminCfg         `mapstructure:"admin"`
	// Plugin is plugin type -> implementation name -> config.
	Plugin map[string]any `mapstructure:"plugin"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *WireCfg {
	return &WireCfg{
		Log: log.DefaultCfg(),
		DropLog: DropLogCfg{
			Every: time.Second,
			Burst: 10,
		},
	}
}

// Tag returns the parsed default transform tag.
func (c *WireCfg) Tag() (serializer.TransformTag, error) {
	return serializer.ParseTag(c.Serializer.Tag)
}

// Validate checks every section.
func (c *WireCfg) Validate() error {
	if c.Log == nil {
		return errors.New("log section is missing")
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if _, err := c.Tag(); err != nil {
		return fmt.Errorf("serializer: %w", err)
	}
	if c.DropLog.Every < 0 || c.DropLog.Burst < 0 {
		return fmt.Errorf("dropLog: every and burst must be non-negative, got %s/%d", c.DropLog.Every, c.DropLog.Burst)
	}
	if c.DropLog.Every > 0 && c.DropLog.Burst == 0 {
		return fmt.Errorf("dropLog: burst must be positive when every is set, got every=%s", c.DropLog.Every)
	}
	for _, s := range c.Registry.Suffixes {
		if strings.TrimSpace(s) == "" {
			return errors.New("registry: empty suffix")
		}
	}
	return nil
}

// Load reads path and decodes it. The format follows the file extension.
func Load(path string) (*WireCfg, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(format, data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format.
func Parse(format string, data []byte) (*WireCfg, error) {
	raw := map[string]any{}
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return Decode(raw)
}

// Decode applies raw on top of Default and validates the result.
func Decode(raw map[string]any) (*WireCfg, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToLevelHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		Result:      cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

var levelType = reflect.TypeOf(log.Level(0))

// stringToLevelHook lets `level = "debug"` fill a log.Level. Unknown names fail.
func stringToLevelHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != levelType {
		return data, nil
	}
	l, ok := log.LookupLevel(data.(string))
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", data)
	}
	return l, nil
}
