package types

import "errors"

// Config selects the durable backend and the engine's delete policy.
type Config struct {
	Backend      string `json:"backend" yaml:"backend"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DSN          string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	DeletePolicy string `json:"delete_policy,omitempty" yaml:"delete_policy,omitempty"`
}

// Supported backend names.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Delete policies. DeleteNone removes only the named entity and leaves
// children with dangling foreign keys.
const (
	DeleteNone     = "none"
	DeleteRestrict = "restrict"
	DeleteCascade  = "cascade"
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrDSNEmpty            = errors.New("dsn must not be empty for the mysql backend")
	ErrDeletePolicyUnknown = errors.New("unknown delete policy")
)

var knownBackends = map[string]bool{
	BackendJSONL:  true,
	BackendSQLite: true,
	BackendMySQL:  true,
}

var knownDeletePolicies = map[string]bool{
	"":             true,
	DeleteNone:     true,
	DeleteRestrict: true,
	DeleteCascade:  true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendMySQL && c.DSN == "" {
		return ErrDSNEmpty
	}
	if !knownDeletePolicies[c.DeletePolicy] {
		return ErrDeletePolicyUnknown
	}
	return nil
}

// GetDeletePolicy returns the configured policy, defaulting to DeleteNone.
func (c Config) GetDeletePolicy() string {
	if c.DeletePolicy == "" {
		return DeleteNone
	}
	return c.DeletePolicy
}
