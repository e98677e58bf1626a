package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yml "gopkg.in/yaml.v2"

	"github.com/calvinmclean/dualstep/motion"
)

// ConfigFileName is read from the working directory unless -config is set
const ConfigFileName = "dualstep.yml"

// Config is the file format for dualstep.yml. Serial link settings come from the
// environment instead, see controller.Config
type Config struct {
	// Addr is where the monitor listens in sim mode. Empty disables it
	Addr     string        `koanf:"addr" yaml:"addr"`
	LogLevel string        `koanf:"log_level" yaml:"log_level"`
	Motion   motion.Config `koanf:"motion" yaml:"motion"`
}

func defaultConfig() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Motion:   motion.DefaultConfig(),
	}
}

// loadConfig layers the file at path over the defaults. A missing file is not an error
func loadConfig(path string) (Config, error) {
	k := koanf.New(".")

	err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	if err != nil {
		return Config{}, fmt.Errorf("error loading defaults: %w", err)
	}

	_, err = os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("error reading %s: %w", path, err)
	default:
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return Config{}, fmt.Errorf("error loading %s: %w", path, err)
		}
	}

	var cfg Config
	err = k.Unmarshal("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}

	err = cfg.Motion.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func writeConfig(w io.Writer, cfg Config) error {
	return yml.NewEncoder(w).Encode(cfg)
}
