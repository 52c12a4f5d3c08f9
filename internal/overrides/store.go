package overrides

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"dario.cat/mergo"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/titanous/json5"
)

const DefaultImagePrefix = "/static/images/"

// Table maps a site path to its manual correction.
type Table map[string]models.OverrideRule

// Store holds the process-wide override table. Reload swaps the whole table
// at once, so readers see either the old or the new one.
type Store struct {
	path        string
	imagePrefix string
	table       atomic.Pointer[Table]
	logger      *slog.Logger
}

func NewStore(path, imagePrefix string, logger *slog.Logger) *Store {
	if imagePrefix == "" {
		imagePrefix = DefaultImagePrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:        path,
		imagePrefix: imagePrefix,
		logger:      logger.With("component", "overrides"),
	}
	s.Reload()
	return s
}

// Reload re-reads the source. A missing or malformed source gives an empty
// table. It returns the number of rules now active.
func (s *Store) Reload() int {
	table, err := ReadTable(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("no override file found", "path", s.path)
		table = Table{}
	case err != nil:
		s.logger.Error("failed to load overrides", "path", s.path, "error", err)
		table = Table{}
	default:
		s.logger.Info("overrides loaded", "path", s.path, "rules", len(table))
	}

	s.Replace(table)
	return len(table)
}

// Replace installs table as the active override table.
func (s *Store) Replace(table Table) {
	if table == nil {
		table = Table{}
	}
	s.table.Store(&table)
}

// Snapshot returns the active table. Callers must not modify it.
func (s *Store) Snapshot() Table {
	if t := s.table.Load(); t != nil {
		return *t
	}
	return Table{}
}

// Lookup finds the rule for path, trying it as given, without and with a
// leading slash, then the path part of an absolute URL.
func (s *Store) Lookup(path string) (models.OverrideRule, bool) {
	table := s.Snapshot()
	if len(table) == 0 || path == "" {
		return models.OverrideRule{}, false
	}

	for _, key := range lookupKeys(path) {
		if rule, ok := table[key]; ok {
			return rule, true
		}
	}
	return models.OverrideRule{}, false
}

func lookupKeys(path string) []string {
	stripped := strings.TrimLeft(path, "/")
	keys := []string{path, stripped, "/" + stripped}
	if parser.IsAbsolute(path) {
		if p := parser.PathOnly(path); p != path {
			keys = append(keys, p, strings.TrimLeft(p, "/"))
		}
	}
	return keys
}

// ReadTable reads <name>.<ext> and merges <name>.local.<ext> over it.
// Both files are JSON5. It returns os.ErrNotExist when neither exists.
func ReadTable(name string) (Table, error) {
	out := Table{}
	found := false

	base, err := readFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		found = true
	}

	localName := localPath(name)
	local, err := readFile(localName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if len(local) > 0 {
		localTable := Table{}
		if err := json5.Unmarshal(local, &localTable); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", localName, err)
		}
		if err := mergeTables(out, localTable); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", localName, err)
		}
		found = true
	}

	if !found {
		return nil, os.ErrNotExist
	}
	return out, nil
}

// mergeTables layers local onto base rule by rule. Fields set in a local rule
// win; fields it leaves out keep their base value. A local file cannot clear
// hidden, since false is indistinguishable from unset.
func mergeTables(base, local Table) error {
	for path, localRule := range local {
		rule, ok := base[path]
		if !ok {
			base[path] = localRule
			continue
		}
		if err := mergo.Merge(&rule, localRule, mergo.WithOverride); err != nil {
			return fmt.Errorf("rule %s: %w", path, err)
		}
		base[path] = rule
	}
	return nil
}

func readFile(name string) ([]byte, error) {
	if name == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(name)
}

func localPath(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}
