package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/hbnb/internal/api"
	"github.com/mesh-intelligence/hbnb/internal/paths"
	"github.com/mesh-intelligence/hbnb/pkg/storage"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Config keys.
const (
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyDSN          = "dsn"
	cfgKeyDeletePolicy = "delete_policy"
	cfgKeyAPIHost      = "api.host"
	cfgKeyAPIPort      = "api.port"
)

// Environment variables viper reads for store settings. The data directory
// and the listener have their own resolution chains.
var configEnv = map[string]string{
	cfgKeyBackend:      "HBNB_BACKEND",
	cfgKeyDSN:          "HBNB_DSN",
	cfgKeyDeletePolicy: "HBNB_DELETE_POLICY",
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendJSONL)
	v.SetDefault(cfgKeyDeletePolicy, types.DeleteNone)
	v.SetDefault(cfgKeyAPIHost, api.DefaultHost)
	v.SetDefault(cfgKeyAPIPort, api.DefaultPort)
	for key, env := range configEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// storeConfig assembles the storage Config from flags and config.yaml.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:      a.v.GetString(cfgKeyBackend),
		DataDir:      dataDir,
		DSN:          a.v.GetString(cfgKeyDSN),
		DeletePolicy: a.v.GetString(cfgKeyDeletePolicy),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured store. The caller must Close it.
func (a *app) openStore() (types.Storage, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	s, err := storage.Open(cfg)
	if err != nil {
		return nil, sysErrorf("open %s store: %w", cfg.Backend, err)
	}
	return s, nil
}

// withStore opens the store, runs fn, and closes the store. A failing
// close is reported when fn succeeded.
func (a *app) withStore(fn func(s types.Storage) error) (err error) {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(s)
}

// apiConfig returns the listener settings: config.yaml, then
// HBNB_API_HOST and HBNB_API_PORT.
func (a *app) apiConfig() (api.Config, error) {
	base := api.Config{
		Host: a.v.GetString(cfgKeyAPIHost),
		Port: a.v.GetInt(cfgKeyAPIPort),
	}
	return api.ParseEnv(base)
}
