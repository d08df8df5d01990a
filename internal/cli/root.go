// Package cli implements the hbnb command-line interface: storage
// initialization, the API server, and direct entity maintenance.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/hbnb/internal/paths"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values shared by all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state one command invocation works with.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
}

// NewRootCmd creates the top-level "hbnb" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "hbnb",
		Short: "HBnB object store and REST API",
		Long: "hbnb stores states, cities, places, users, reviews, and amenities,\n" +
			"serves them over a REST API, and edits them from the command line.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $HBNB_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.hbnb-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newCountCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newLinkCmd(a),
		newUnlinkCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(exitCode(err))
	}
}

// setup resolves the config directory, loads .env files, and reads
// config.yaml.
func (a *app) setup() error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErrorf("resolve config dir: %w", err)
	}
	a.configDir = dir

	if files := paths.DotEnvFiles(dir); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return sysErrorf("load .env: %w", err)
		}
	}

	v, err := loadConfig(dir)
	if err != nil {
		return sysErrorf("load config: %w", err)
	}
	a.v = v
	return nil
}

// systemError marks failures of the environment rather than of the
// user's input.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErrorf(format string, args ...any) error {
	return &systemError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to a process exit code: system and persistence
// failures are 2, everything else is a user error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *systemError
	if errors.As(err, &se) || errors.Is(err, types.ErrPersistence) {
		return exitSysError
	}
	return exitUserError
}
