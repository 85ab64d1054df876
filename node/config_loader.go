package node

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// LoadConfig reads a TOML file on top of DefaultConfig and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML on top of DefaultConfig. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).Strict(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(*c)
}
