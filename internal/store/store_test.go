package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nix-community/go-cache-daemon/internal/store"
)

func TestRealPathRewritesUnderVirtualStore(t *testing.T) {
	s := store.New("/nix/store", "/mnt/real/nix/store", nil)

	got := s.RealPath("/nix/store/abc-hello-1.0")
	assert.Equal(t, "/mnt/real/nix/store/abc-hello-1.0", got)
}

func TestRealPathPassesThroughForeignPaths(t *testing.T) {
	s := store.New("/nix/store", "/mnt/real/nix/store", nil)

	got := s.RealPath("/other/path")
	assert.Equal(t, "/other/path", got)
}

func TestRealPathIdentityWhenNoRealStoreConfigured(t *testing.T) {
	s := store.New("/nix/store", "", nil)

	assert.Equal(t, "/nix/store/abc", s.RealPath("/nix/store/abc"))
	assert.Equal(t, "/nix/store", s.RealStore())
}

func TestVirtualStore(t *testing.T) {
	s := store.New("/nix/store", "", nil)
	assert.Equal(t, "/nix/store", s.VirtualStore())
}
