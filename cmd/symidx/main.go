// Command symidx is a thin operator CLI over the symindex library: it
// opens an Index rooted at a workspace cache directory and exposes
// ID/name/reference/relation queries plus a stats summary, for debugging and
// scripting against an index built by some other process's AST walker.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/symindex"
)

var (
	flagCacheRoot string
	flagBackend   string
	flagFormat    string
	flagReadOnly  bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "symidx",
	Short:         "Inspect a symindex-backed workspace cache",
	Long:          "symidx opens a persistent symbol index and answers ID, name, reference, and relation queries against it.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCacheRoot, "cache-root", "", "index cache directory (default: .symindex relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "shardstore", "storage backend: shardstore|sqlite")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagReadOnly, "read-only", true, "open the sqlite database read-only, without migrating it (ignored by shardstore)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid --format %q: must be json or text", format)
	}
}

// openIndex opens a symindex.Index using the resolved cache root and the
// CLI's --backend/--read-only flags.
func openIndex() (*symindex.Index, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	cacheRoot := resolveCacheRoot(repoRoot)

	backend := symindex.ShardStoreBackend
	if flagBackend == "sqlite" {
		backend = symindex.SqliteBackend
	}

	idx, err := symindex.Open(symindex.Config{
		CacheRoot:    cacheRoot,
		Backend:      backend,
		OpenReadOnly: flagReadOnly,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", cacheRoot, err)
	}
	return idx, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveCacheRoot returns the cache directory from --cache-root or the default.
func resolveCacheRoot(repoRoot string) string {
	if flagCacheRoot != "" {
		if filepath.IsAbs(flagCacheRoot) {
			return flagCacheRoot
		}
		return filepath.Join(repoRoot, flagCacheRoot)
	}
	return filepath.Join(repoRoot, ".symindex")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report the backend kind and loaded package count",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return outputError("stats", err)
	}
	defer idx.Close()

	s := idx.Query().Stats()
	return outputResult(CLIResult{
		Command: "stats",
		Results: CLIStats{Backend: s.Backend, Packages: s.Packages},
	})
}
