package config

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

func parseToml(r io.Reader, strict bool, cfg *Config) error {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return err
	}

	validKeys := map[string]struct{}{}
	for _, option := range cfg.options() {
		key, ok := option.getTomlKey()
		if !ok {
			continue
		}
		validKeys[key] = struct{}{}
		value := tree.Get(key)
		if value == nil {
			continue
		}
		if err := option.setValue(value); err != nil {
			return err
		}
	}

	if strict || cfg.Strict {
		for _, key := range tree.Keys() {
			if _, ok := validKeys[key]; !ok {
				return fmt.Errorf("invalid config: unexpected entry specified in toml file %q", key)
			}
		}
	}

	return nil
}

// MarshalTOML renders the current configuration as a TOML document with each
// option's usage as a comment, suitable for seeding a config file.
func (cfg *Config) MarshalTOML() ([]byte, error) {
	tree, err := toml.TreeFromMap(map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	for _, option := range cfg.options() {
		key, ok := option.getTomlKey()
		if !ok {
			continue
		}
		var value interface{}
		if option.MarshalTOML != nil {
			value, err = option.MarshalTOML(option)
			if err != nil {
				return nil, err
			}
		} else {
			value = dereference(option.ConfigKey)
		}
		tree.SetWithOptions(key, toml.SetOptions{Comment: option.Usage}, value)
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf).Order(toml.OrderPreserve)
	if err := encoder.Encode(tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dereference(i interface{}) interface{} {
	switch v := i.(type) {
	case *bool:
		return *v
	case *string:
		return *v
	case *int64:
		return *v
	case *uint:
		return int64(*v)
	case *uint32:
		return int64(*v)
	case *time.Duration:
		return v.String()
	default:
		return fmt.Sprint(i)
	}
}
