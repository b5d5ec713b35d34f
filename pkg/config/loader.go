package config

import (
	"fmt"
	"log"

	"github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/consul"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SourceType identifies where configuration is loaded from.
type SourceType string

const (
	SourceFile   SourceType = "file"
	SourceConsul SourceType = "consul"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Type selects the config source.
	Type SourceType

	// Path is a filesystem path (SourceFile) or consul key (SourceConsul).
	Path string

	// ConsulAddr is the consul agent address, used only for SourceConsul.
	ConsulAddr string

	// Watch enables hot-reload: file changes (via koanf's fsnotify-backed
	// file provider) or consul key changes invoke OnChange with the newly
	// loaded config.
	Watch bool

	// OnChange is invoked after a successful reload when Watch is true.
	OnChange func(*Config) error
}

// Loader loads and optionally watches RCRT configuration.
type Loader struct {
	koanf   *koanf.Koanf
	options LoaderOptions
	parser  *yaml.YAML
}

// NewLoader constructs a Loader for the given options.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Type == "" {
		opts.Type = SourceFile
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	if opts.Type == SourceConsul && opts.ConsulAddr == "" {
		opts.ConsulAddr = "localhost:8500"
	}
	return &Loader{
		koanf:   koanf.New("."),
		options: opts,
		parser:  yaml.Parser(),
	}, nil
}

func (l *Loader) provider() (koanf.Provider, error) {
	switch l.options.Type {
	case SourceFile:
		return file.Provider(l.options.Path), nil
	case SourceConsul:
		consulConfig := api.DefaultConfig()
		consulConfig.Address = l.options.ConsulAddr
		return consul.Provider(consul.Config{Cfg: consulConfig, Key: l.options.Path}), nil
	default:
		return nil, fmt.Errorf("config: unsupported source type %q", l.options.Type)
	}
}

// Load reads, expands, and unmarshals the configuration. If Watch is set,
// it also starts a background goroutine that re-loads on change.
func (l *Loader) Load() (*Config, error) {
	provider, err := l.provider()
	if err != nil {
		return nil, err
	}

	if err := l.koanf.Load(provider, l.parser); err != nil {
		return nil, fmt.Errorf("config: failed to load from %s: %w", l.options.Type, err)
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}

	if l.options.Watch {
		watcher, ok := provider.(interface {
			Watch(cb func(event interface{}, err error)) error
		})
		if !ok {
			log.Printf("config: provider %s does not support watching, continuing without hot-reload", l.options.Type)
			return cfg, nil
		}
		go l.watch(watcher)
	}

	return cfg, nil
}

func (l *Loader) watch(watcher interface {
	Watch(cb func(event interface{}, err error)) error
}) {
	err := watcher.Watch(func(event interface{}, err error) {
		if err != nil {
			log.Printf("config: watch error: %v", err)
			return
		}
		newCfg, err := l.unmarshal()
		if err != nil {
			log.Printf("config: reload failed: %v", err)
			return
		}
		if l.options.OnChange != nil {
			if err := l.options.OnChange(newCfg); err != nil {
				log.Printf("config: OnChange callback failed: %v", err)
			}
		}
	})
	if err != nil {
		log.Printf("config: watch stopped with error: %v", err)
	}
}

func (l *Loader) unmarshal() (*Config, error) {
	raw := l.koanf.Raw()
	expanded, ok := expandEnvVarsInData(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("config: unexpected structure after environment expansion")
	}

	expandedKoanf := koanf.New(".")
	if err := expandedKoanf.Load(confmap.Provider(expanded, "."), nil); err != nil {
		return nil, fmt.Errorf("config: failed to reload expanded config: %w", err)
	}

	cfg := &Config{}
	if err := expandedKoanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Load is a convenience wrapper that loads a Config from a YAML file path
// with no watching.
func Load(path string) (*Config, error) {
	loader, err := NewLoader(LoaderOptions{Type: SourceFile, Path: path})
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
