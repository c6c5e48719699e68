package plugin

// Type is the kind of plugin a factory produces.
type Type string

const (
	// Metrics plugins are metric reporters.
	Metrics Type = "metrics"
	// Compressor plugins provide the compress stage of the transform pipeline.
	Compressor Type = "compressor"
	// Encryptor plugins provide the encrypt stage of the transform pipeline.
	Encryptor Type = "encryptor"
)

// Factory creates plugin instances of one implementation.
type Factory interface {
	// Type returns the plugin type.
	Type() Type
	// Name returns the implementation name used in configuration.
	Name() string
	// ConfigType returns a pointer to an empty config struct; the manager fills it
	// with mapstructure before calling Setup.
	ConfigType() any
	// Setup creates an instance from the decoded config.
	Setup(any) (Plugin, error)
	// Destroy releases an instance created by Setup.
	Destroy(Plugin)
}

// Plugin is a live plugin instance.
type Plugin interface {
	FactoryName() string
}
