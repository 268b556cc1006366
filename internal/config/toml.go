// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Student StudentConfig `toml:"student"`
	Admin   AdminConfig   `toml:"admin"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// StudentConfig pre-fills the student login.
type StudentConfig struct {
	RollNumber *string `toml:"roll-number"`
	Name       *string `toml:"name"`
}

// AdminConfig maps the admin account. PasswordHash is a bcrypt hash as
// printed by `stenoarena admin hash-password`.
type AdminConfig struct {
	Username     *string `toml:"username"`
	PasswordHash *string `toml:"password-hash"`
}

// StorageConfig maps storage settings.
type StorageConfig struct {
	DB *string `toml:"db"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	File    *string `toml:"file"`
	Verbose *bool   `toml:"verbose"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// String returns the value of p, or fallback when p is nil.
func String(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

// Bool returns the value of p, or fallback when p is nil.
func Bool(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
