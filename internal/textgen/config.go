// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textgen implements the text-generation tool: a configured GPT
// client, knowledge-store bookkeeping for generated text, batch
// processing, and an interactive session.
package textgen

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DefaultConfigFile is used when no config path is given.
const DefaultConfigFile = "text_gen_config.json"

// Config is the tool's instance configuration, persisted as JSON so
// settings like the API key and model survive between invocations.
type Config struct {
	v    *viper.Viper
	path string
}

// LoadConfig reads the JSON config at path, layering it over defaults.
// A missing file yields the defaults; Save creates it.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("gpt.model", "gpt-3.5-turbo")
	v.SetDefault("gpt.api_key", "")
	v.SetDefault("gpt.max_tokens", 150)
	v.SetDefault("gpt.temperature", 0.7)
	v.SetDefault("uks.auto_save", true)
	v.SetDefault("uks.knowledge_base", "knowledge.json")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.save_to_file", false)
	v.SetDefault("output.output_dir", "generated_text")
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("batch.delay_between_requests", 1.0)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return &Config{v: v, path: path}, nil
}

// Path returns the config file location.
func (c *Config) Path() string {
	return c.path
}

// GetString returns the string value for a dotted key.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns the integer value for a dotted key.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns the float value for a dotted key.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// Set overrides a dotted key for this instance. Save persists it.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// Save writes the full configuration back to the config file.
func (c *Config) Save() error {
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing config %s: %w", c.path, err)
	}
	return nil
}

// JSON renders the effective configuration as indented JSON.
func (c *Config) JSON() (string, error) {
	data, err := json.MarshalIndent(c.v.AllSettings(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}
