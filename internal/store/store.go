// Package store maps store paths between the virtual Nix store directory
// (the one embedded in hashes and advertised to clients) and the real
// directory they live under on disk, and holds the daemon session used to
// query the build daemon about them.
package store

import (
	"strings"

	"github.com/nix-community/go-cache-daemon/pkg/daemon"
)

// Store is the server's view of a single Nix store: a virtual/real
// directory mapping plus the daemon connection used to answer queries
// about it. The zero value is usable with virtualStore == realStore.
type Store struct {
	virtualStore string
	realStore    string // empty means same as virtualStore

	Daemon *daemon.Client
}

// New constructs a Store. realStore may be empty, meaning the virtual and
// real store directories are identical.
func New(virtualStore, realStore string, client *daemon.Client) *Store {
	return &Store{
		virtualStore: virtualStore,
		realStore:    realStore,
		Daemon:       client,
	}
}

// RealPath rewrites a virtual store path to its real on-disk path. Paths
// outside the virtual store directory pass through unchanged.
func (s *Store) RealPath(virtualPath string) string {
	if s.realStore == "" || !strings.HasPrefix(virtualPath, s.virtualStore) {
		return virtualPath
	}

	return s.realStore + strings.TrimPrefix(virtualPath, s.virtualStore)
}

// RealStore returns the real store directory, falling back to the virtual
// one when no separate real directory was configured.
func (s *Store) RealStore() string {
	if s.realStore == "" {
		return s.virtualStore
	}

	return s.realStore
}

// VirtualStore returns the store directory embedded in store paths and
// hashes.
func (s *Store) VirtualStore() string {
	return s.virtualStore
}
