package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

const (
	// DefaultInsName is the tag for the default plugin instance.
	DefaultInsName = "default"
)

var (
	ErrPluginNotFound      = errors.New("plugin not found")
	ErrDuplicatePlugin     = errors.New("duplicate plugin")
	ErrInvalidConfigFormat = errors.New("invalid config format")
	ErrConfigDecode        = errors.New("config decode error")
	ErrFactorySetup        = errors.New("factory setup error")
)

// Manager owns plugin factories and the instances set up from configuration.
type Manager struct {
	factories map[Type]map[string]Factory
	plugins   map[Type]map[string]Plugin
	owners    map[Plugin]Factory
	lock      sync.RWMutex
}

// NewManager creates and returns a new Manager instance.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[Type]map[string]Factory),
		plugins:   make(map[Type]map[string]Plugin),
		owners:    make(map[Plugin]Factory),
	}
}

// RegisterFactory registers a plugin factory with the manager.
func (m *Manager) RegisterFactory(f Factory) {
	m.lock.Lock()
	defer m.lock.Unlock()

	factories, ok := m.factories[f.Type()]
	if !ok {
		factories = make(map[string]Factory)
		m.factories[f.Type()] = factories
	}
	factories[f.Name()] = f
}

// SetupPlugins creates every plugin instance named in pluginConf, which is the
// `[plugin]` table of the configuration: plugin type -> implementation name -> config.
// Types with no registered factory are skipped. Instances are set up in name
// order; if one fails, those already created by this call are destroyed.
func (m *Manager) SetupPlugins(pluginConf map[string]any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var created []setupResult
	for _, typeName := range sortedKeys(pluginConf) {
		pluginType := Type(typeName)
		factories, ok := m.factories[pluginType]
		if !ok {
			continue
		}

		pluginsMap, ok := pluginConf[typeName].(map[string]any)
		if !ok {
			m.rollback(created)
			return fmt.Errorf("%w for plugin type '%s'", ErrInvalidConfigFormat, pluginType)
		}

		for _, name := range sortedKeys(pluginsMap) {
			res, err := m.setupOne(factories, pluginType, name, pluginsMap[name])
			if err != nil {
				m.rollback(created)
				return err
			}
			created = append(created, res)
		}
	}
	return nil
}

type setupResult struct {
	typ Type
	key string
	ins Plugin
}

// setupOne decodes config into the factory's config type, creates the
// instance and registers it under its tag, or its name when untagged.
func (m *Manager) setupOne(factories map[string]Factory, typ Type, name string, config any) (setupResult, error) {
	factory, ok := factories[name]
	if !ok {
		return setupResult{}, fmt.Errorf("%w: plugin factory not found for type '%s' and name '%s'", ErrPluginNotFound, typ, name)
	}

	configMap, ok := config.(map[string]any)
	if !ok {
		return setupResult{}, fmt.Errorf("%w for plugin '%s':'%s'", ErrInvalidConfigFormat, typ, name)
	}

	targetConfig := factory.ConfigType()
	if targetConfig == nil {
		return setupResult{}, fmt.Errorf("%w: plugin factory '%s':'%s' did not provide a configuration type", ErrInvalidConfigFormat, typ, name)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: false,
		Result:           targetConfig,
	})
	if err != nil {
		return setupResult{}, fmt.Errorf("%w: failed to create config decoder for plugin '%s':'%s': %v", ErrConfigDecode, typ, name, err)
	}
	if err := decoder.Decode(configMap); err != nil {
		return setupResult{}, fmt.Errorf("%w: failed to decode config for plugin '%s':'%s': %v", ErrConfigDecode, typ, name, err)
	}

	ins, err := factory.Setup(targetConfig)
	if err != nil {
		return setupResult{}, fmt.Errorf("%w: failed to setup plugin '%s':'%s': %v", ErrFactorySetup, typ, name, err)
	}

	key := name
	if tag, ok := configMap["tag"].(string); ok && tag != "" {
		key = tag
	}
	if _, exists := m.plugins[typ][key]; exists {
		factory.Destroy(ins)
		return setupResult{}, fmt.Errorf("%w: duplicate plugin tag/name '%s' for type '%s'", ErrDuplicatePlugin, key, typ)
	}

	if _, ok := m.plugins[typ]; !ok {
		m.plugins[typ] = make(map[string]Plugin)
	}
	m.plugins[typ][key] = ins
	m.owners[ins] = factory
	return setupResult{typ: typ, key: key, ins: ins}, nil
}

func (m *Manager) rollback(created []setupResult) {
	for i := len(created) - 1; i >= 0; i-- {
		res := created[i]
		if f, ok := m.owners[res.ins]; ok {
			f.Destroy(res.ins)
			delete(m.owners, res.ins)
		}
		delete(m.plugins[res.typ], res.key)
	}
}

// GetPlugin gets an initialized plugin instance from the manager.
// `name` can be the name of the plugin or its tag.
func (m *Manager) GetPlugin(typ Type, name string) (any, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	plugins, ok := m.plugins[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no plugins found for type '%s'", ErrPluginNotFound, typ)
	}

	plugin, ok := plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: plugin '%s' not found for type '%s'", ErrPluginNotFound, name, typ)
	}
	return plugin, nil
}

// GetDefaultPlugin gets the default plugin instance of the specified type from the manager.
func (m *Manager) GetDefaultPlugin(typ Type) (any, error) {
	return m.GetPlugin(typ, DefaultInsName)
}

// Names returns the sorted lookup keys of the instances of typ.
func (m *Manager) Names(typ Type) []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return sortedKeys(m.plugins[typ])
}

// RegisterPlugin installs an already constructed instance under typ/name.
// It is used for built-in defaults that need no configuration.
func (m *Manager) RegisterPlugin(typ Type, name string, p Plugin) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.plugins[typ]; !ok {
		m.plugins[typ] = make(map[string]Plugin)
	}
	if _, exists := m.plugins[typ][name]; exists {
		return fmt.Errorf("%w: duplicate plugin tag/name '%s' for type '%s'", ErrDuplicatePlugin, name, typ)
	}
	m.plugins[typ][name] = p
	return nil
}

// DestroyPlugins destroys every instance created by SetupPlugins and forgets all instances.
func (m *Manager) DestroyPlugins() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for p, f := range m.owners {
		f.Destroy(p)
	}
	m.owners = make(map[Plugin]Factory)
	m.plugins = make(map[Type]map[string]Plugin)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
