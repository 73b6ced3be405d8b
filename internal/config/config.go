// Package config parses a hierarchical, YAML configuration document into a
// small accessor type (GetStringOrDefault, and friends) rather than
// exposing a struct with fixed yaml tags — the set of plugin config
// subtrees is open-ended (one per registered detector/strategy name),
// which a fixed struct can't model.
package config

import (
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a read-only view over one hierarchical key-value subtree.
type Config struct {
	node map[string]any
}

// Parse parses raw YAML bytes into a root Config.
func Parse(raw []byte) (*Config, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	return &Config{node: root}, nil
}

// Empty returns a Config with no keys, useful as a safe zero value when a
// plugin has no configuration subtree of its own.
func Empty() *Config { return &Config{node: map[string]any{}} }

// Section returns the sub-tree at key, or an empty Config if the key is
// absent or not a mapping.
func (c *Config) Section(key string) *Config {
	if c == nil {
		return Empty()
	}
	v, ok := c.node[key]
	if !ok {
		return Empty()
	}
	m, ok := toStringMap(v)
	if !ok {
		return Empty()
	}
	return &Config{node: m}
}

// Has reports whether key is present in this subtree.
func (c *Config) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.node[key]
	return ok
}

// GetStringOrDefault returns the string value at key, or def if absent.
func (c *Config) GetStringOrDefault(key, def string) string {
	if c == nil {
		return def
	}
	v, ok := c.node[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// GetIntOrDefault returns the int value at key, or def if absent or not a
// number.
func (c *Config) GetIntOrDefault(key string, def int) int {
	if c == nil {
		return def
	}
	v, ok := c.node[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// GetBoolOrDefault returns the bool value at key, or def if absent.
func (c *Config) GetBoolOrDefault(key string, def bool) bool {
	if c == nil {
		return def
	}
	v, ok := c.node[key]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// GetDurationOrDefault parses a Go duration string (e.g. "250ms") at key,
// or returns def if absent or unparsable.
func (c *Config) GetDurationOrDefault(key string, def time.Duration) time.Duration {
	if c == nil {
		return def
	}
	v, ok := c.node[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetStringSliceOrDefault returns a list-valued key's elements coerced to
// strings, or def if absent.
func (c *Config) GetStringSliceOrDefault(key string, def []string) []string {
	if c == nil {
		return def
	}
	v, ok := c.node[key]
	if !ok {
		return def
	}
	list, ok := v.([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}
