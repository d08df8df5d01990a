package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/hbnb/internal/api"
	"github.com/mesh-intelligence/hbnb/internal/paths"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend      string        `yaml:"backend"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	DSN          string        `yaml:"dsn,omitempty"`
	DeletePolicy string        `yaml:"delete_policy"`
	API          configFileAPI `yaml:"api"`
}

type configFileAPI struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

const configHeader = "# hbnb configuration. Backends: jsonl, sqlite, mysql (needs dsn).\n" +
	"# delete_policy: none, restrict, cascade.\n"

func newInitCmd(a *app) *cobra.Command {
	var backend, dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize hbnb storage",
		Long:  "Create the configuration directory and config.yaml if missing, then open and close the store once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return sysErrorf("create config directory: %w", err)
			}

			path := paths.ConfigFile(a.configDir)
			written, err := writeConfigIfMissing(path, configFile{
				Backend:      backend,
				DataDir:      a.flags.dataDir,
				DSN:          dsn,
				DeletePolicy: types.DeleteNone,
				API:          configFileAPI{Host: api.DefaultHost, Port: api.DefaultPort},
			})
			if err != nil {
				return sysErrorf("write config: %w", err)
			}
			if written {
				// Pick up what was just written.
				v, err := loadConfig(a.configDir)
				if err != nil {
					return sysErrorf("load config: %w", err)
				}
				a.v = v
			}

			if err := a.withStore(func(types.Storage) error { return nil }); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hbnb initialized (config: %s)\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", types.BackendJSONL, "storage backend written to a new config.yaml")
	cmd.Flags().StringVar(&dsn, "dsn", "", "MySQL DSN written to a new config.yaml")
	return cmd
}

// writeConfigIfMissing creates config.yaml unless it already exists.
// Reports whether the file was written.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
