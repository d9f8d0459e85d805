// Package vault locates and describes a vault directory: the ".ori"
// marker, note/inbox/template paths, and the derived-state defaults.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

const markerName = ".ori"

// Vault is a resolved vault root plus its fixed subpaths.
type Vault struct {
	Root      string
	NotesDir  string
	InboxDir  string
	TemplatesDir string
}

// Discover walks up from start until a ".ori" marker file or directory is
// found, returning the directory that contains it. Returns an error if
// none is found before reaching the filesystem root, since a vault root
// that cannot be identified is a fatal condition for every caller.
func Discover(start string) (*Vault, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve start path: %w", err)
	}

	for {
		marker := filepath.Join(dir, markerName)
		if _, err := os.Stat(marker); err == nil {
			return New(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no %s marker found above %s", markerName, start)
		}
		dir = parent
	}
}

// New constructs a Vault for a known root without checking for the
// marker (used by initialization flows and tests).
func New(root string) *Vault {
	return &Vault{
		Root:         root,
		NotesDir:     filepath.Join(root, "notes"),
		InboxDir:     filepath.Join(root, "inbox"),
		TemplatesDir: filepath.Join(root, "templates"),
	}
}

// ConfigPath returns the path to ori.config.yaml under the vault root.
func (v *Vault) ConfigPath() string { return filepath.Join(v.Root, "ori.config.yaml") }

// DefaultEmbeddingDBPath returns the default derived embedding store
// location, overridable by engine.db_path in config.
func (v *Vault) DefaultEmbeddingDBPath() string {
	return filepath.Join(v.Root, ".ori", "embeddings.db")
}

// DefaultAccessLogPath returns the default propensity log location,
// overridable by ips.log_path in config.
func (v *Vault) DefaultAccessLogPath() string {
	return filepath.Join(v.Root, "ops", "access.jsonl")
}
