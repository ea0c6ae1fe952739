// Package config loads the proxy's settings (spec.md §6) with viper and
// owns the atomic rewrite of the learned server version/protocol back to
// disk, the way the teacher's config.json self-update does.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/gekware/minecraft-server-hibernation/internal/errco"
)

// Config holds every option spec.md §6 recognizes.
type Config struct {
	ListenHost string `mapstructure:"listenHost"`
	ListenPort int    `mapstructure:"listenPort"`

	ServerHost string `mapstructure:"serverHost"`
	ServerPort int    `mapstructure:"serverPort"`

	StartCommand  string   `mapstructure:"startCommand"`
	StopCommands  []string `mapstructure:"stopCommands"`

	ExpectedStartupTime int `mapstructure:"expectedStartupTime"`
	IdleShutdownDelay   int `mapstructure:"idleShutdownDelay"`

	BandwidthWindow int  `mapstructure:"bandwidthWindow"`
	Debug           bool `mapstructure:"debug"`

	ServerVersionName string `mapstructure:"serverVersionName"`
	ServerProtocol    int    `mapstructure:"serverProtocol"`

	FaviconDataURI string `mapstructure:"faviconDataURI"`

	// QueryPort, when non-zero, enables the supplemental UDP query responder.
	QueryPort int `mapstructure:"queryPort"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("listenHost", "0.0.0.0")
	v.SetDefault("listenPort", 25565)
	v.SetDefault("serverHost", "127.0.0.1")
	v.SetDefault("serverPort", 25555)
	v.SetDefault("expectedStartupTime", 20)
	v.SetDefault("idleShutdownDelay", 300)
	v.SetDefault("bandwidthWindow", 3)
	v.SetDefault("debug", false)
	v.SetDefault("serverVersionName", "1.20.4")
	v.SetDefault("serverProtocol", 765)
	v.SetDefault("queryPort", 0)
}

// Store owns the on-disk config path for later atomic rewrite and exposes
// the live, possibly version-updated, Config behind a mutex. Only the
// serverVersionName/serverProtocol fields are ever rewritten at runtime.
type Store struct {
	path string

	mu  sync.Mutex
	cur Config
}

// Load reads path (YAML) with environment-variable overrides prefixed MSH_.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MSH")
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errco.New(errco.ClassFatal, "reading config file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errco.New(errco.ClassFatal, "decoding config", err)
	}

	if cfg.StartCommand == "" {
		return nil, errco.New(errco.ClassFatal, "startCommand is required", nil)
	}

	return &Store{path: path, cur: cfg}, nil
}

// Snapshot returns a copy of the current config, safe for concurrent callers.
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// UpdateServerVersion records a newly observed server version/protocol pair
// learned from a live backend handshake (spec.md §4.3) and persists it with
// a temp-file-plus-rename atomic replace so a crash mid-write never leaves a
// truncated config file behind.
func (s *Store) UpdateServerVersion(name string, protocol int) error {
	s.mu.Lock()
	if s.cur.ServerVersionName == name && s.cur.ServerProtocol == protocol {
		s.mu.Unlock()
		return nil
	}
	s.cur.ServerVersionName = name
	s.cur.ServerProtocol = protocol
	snapshot := s.cur
	s.mu.Unlock()

	return s.writeAtomic(snapshot)
}

func (s *Store) writeAtomic(cfg Config) error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.Set("listenHost", cfg.ListenHost)
	v.Set("listenPort", cfg.ListenPort)
	v.Set("serverHost", cfg.ServerHost)
	v.Set("serverPort", cfg.ServerPort)
	v.Set("startCommand", cfg.StartCommand)
	v.Set("stopCommands", cfg.StopCommands)
	v.Set("expectedStartupTime", cfg.ExpectedStartupTime)
	v.Set("idleShutdownDelay", cfg.IdleShutdownDelay)
	v.Set("bandwidthWindow", cfg.BandwidthWindow)
	v.Set("debug", cfg.Debug)
	v.Set("serverVersionName", cfg.ServerVersionName)
	v.Set("serverProtocol", cfg.ServerProtocol)
	v.Set("faviconDataURI", cfg.FaviconDataURI)
	v.Set("queryPort", cfg.QueryPort)

	// Viper infers the serialization format from the target filename's own
	// extension, so the temp file must keep the real config's extension —
	// a bare ".tmp" suffix makes WriteConfigAs fail with an unsupported
	// config type.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".msh-config-*"+filepath.Ext(s.path))
	if err != nil {
		return fmt.Errorf("config: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := v.WriteConfigAs(tmpPath); err != nil {
		return fmt.Errorf("config: writing temp file: %w", err)
	}

	return os.Rename(tmpPath, s.path)
}
