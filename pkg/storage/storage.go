// Package storage is the public entry point for opening an HBnB object
// store. It picks the durable backend named by the Config and returns an
// opened Storage, keeping the engine and backends internal.
package storage

import (
	"fmt"

	"github.com/mesh-intelligence/hbnb/internal/jsonl"
	"github.com/mesh-intelligence/hbnb/internal/sqlstore"
	"github.com/mesh-intelligence/hbnb/internal/store"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Open validates cfg, creates the backend, and loads its contents. The
// caller must Close the returned Storage to perform the final save.
//
// Example:
//
//	s, err := storage.Open(types.Config{
//	    Backend: types.BackendJSONL,
//	    DataDir: ".hbnb-db",
//	})
//	defer s.Close()
func Open(cfg types.Config) (types.Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	s := store.NewStore(backend, store.WithDeletePolicy(cfg.GetDeletePolicy()))
	if err := s.Open(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

func newBackend(cfg types.Config) (store.Backend, error) {
	switch cfg.Backend {
	case types.BackendJSONL:
		b, err := jsonl.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("creating jsonl backend: %w", err)
		}
		return b, nil
	case types.BackendSQLite:
		b, err := sqlstore.OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite backend: %w", err)
		}
		return b, nil
	case types.BackendMySQL:
		b, err := sqlstore.OpenMySQL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("creating mysql backend: %w", err)
		}
		return b, nil
	default:
		return nil, types.ErrBackendUnknown
	}
}
