package symindex

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Backend selects which persistent storage implementation a QueryEngine and
// UpdateController pair are built over.
type Backend uint8

const (
	// ShardStoreBackend stores one content-addressed shard file per
	// package (internal/shardstore + internal/memindex).
	ShardStoreBackend Backend = iota
	// SqliteBackend stores the same logical data in a shared SQLite
	// database (internal/sqlbackend).
	SqliteBackend
)

func (b Backend) String() string {
	switch b {
	case ShardStoreBackend:
		return "shardstore"
	case SqliteBackend:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Config configures an Index. Build one with Option functions over
// NewConfig, load Options from disk with LoadConfigFile, or write a struct
// literal; Open fills in zero-valued fields the same way NewConfig does.
type Config struct {
	// CacheRoot is the workspace cache directory. ShardStoreBackend keeps
	// its shard files in CacheRoot's .cache/index subdirectory;
	// SqliteBackend keeps its database file, symindex.db, directly in it.
	CacheRoot string

	// Backend selects the storage implementation.
	Backend Backend

	// OpenReadOnly opens SqliteBackend's database file read-only and skips
	// its schema migration. ShardStoreBackend ignores it, and the
	// UpdateController is wired for both backends either way.
	OpenReadOnly bool

	// OpenInMemory opens an ephemeral SqliteBackend (":memory:") instead
	// of a file on disk; CacheRoot is ignored. Useful for tests and for
	// workspaces that opt out of persistence entirely.
	OpenInMemory bool

	// ApplicationID and SchemaVersion are carried on Config but Open does
	// not pass them to internal/sqlbackend, which always checks and writes
	// its own built-in application_id and user_version pragma values.
	ApplicationID int32
	SchemaVersion int32

	// CangjieHome is passed through untouched; this module neither reads
	// nor interprets it. It exists so a caller's external AST producer
	// (the parser/analyzer side of spec.md §1) can be configured from the
	// same on-disk symindex.yaml as the index itself.
	CangjieHome string

	// Logger receives structured log output from every component. A
	// no-op logger is used if left nil.
	Logger *zap.Logger
}

// Option mutates a Config being built up by NewConfig.
type Option func(*Config)

// WithCacheRoot sets the workspace cache directory.
func WithCacheRoot(root string) Option {
	return func(c *Config) { c.CacheRoot = root }
}

// WithBackend selects the storage backend.
func WithBackend(b Backend) Option {
	return func(c *Config) { c.Backend = b }
}

// WithReadOnly sets OpenReadOnly: SqliteBackend opens its database
// read-only without migrating it; ShardStoreBackend ignores it.
func WithReadOnly(readOnly bool) Option {
	return func(c *Config) { c.OpenReadOnly = readOnly }
}

// WithInMemory opens an ephemeral SqliteBackend instead of a file.
func WithInMemory(inMemory bool) Option {
	return func(c *Config) { c.OpenInMemory = inMemory }
}

// WithLogger sets the structured logger used by every component.
func WithLogger(log *zap.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithCangjieHome passes CangjieHome through to the config, untouched.
func WithCangjieHome(path string) Option {
	return func(c *Config) { c.CangjieHome = path }
}

// NewConfig builds a Config from defaults plus the given Options, for
// callers that prefer the functional-options style over constructing a
// Config struct literal directly.
func NewConfig(opts ...Option) Config {
	c := Config{
		CacheRoot: ".cache/index",
		Backend:   ShardStoreBackend,
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// withDefaults fills in zero-valued fields of a Config constructed as a
// struct literal (e.g. by Open's caller) the same way NewConfig does for
// the functional-options path, so the two construction styles behave
// identically.
func (c Config) withDefaults() Config {
	if c.CacheRoot == "" {
		c.CacheRoot = ".cache/index"
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// fileConfig is the on-disk shape of symindex.yaml, the ambient
// workspace-configuration file SPEC_FULL adds on top of spec.md's
// programmatic Config (SPEC_FULL.md §6).
type fileConfig struct {
	CacheRoot   string `yaml:"cache_root"`
	Backend     string `yaml:"backend"`
	CangjieHome string `yaml:"cangjie_home"`
}

// LoadConfigFile reads a symindex.yaml workspace configuration file at path
// and returns the Options it implies. A missing file is not an error — it
// simply yields no Options, so callers can always ask for defaults plus
// whatever the file overrides.
func LoadConfigFile(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symindex: read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("symindex: parse config %s: %w", path, err)
	}

	var opts []Option
	if fc.CacheRoot != "" {
		opts = append(opts, WithCacheRoot(fc.CacheRoot))
	}
	if fc.CangjieHome != "" {
		opts = append(opts, WithCangjieHome(fc.CangjieHome))
	}
	switch fc.Backend {
	case "sqlite":
		opts = append(opts, WithBackend(SqliteBackend))
	case "shardstore", "":
		opts = append(opts, WithBackend(ShardStoreBackend))
	default:
		return nil, fmt.Errorf("symindex: config %s: unknown backend %q", path, fc.Backend)
	}
	return opts, nil
}
