package daemon_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nix-community/go-cache-daemon/pkg/daemon"
)

func TestWriteReadStrings(t *testing.T) {
	var buf bytes.Buffer
	err := daemon.WriteStrings(&buf, []string{"foo", "bar", "baz"})
	assert.NoError(t, err)
	result, err := daemon.ReadStrings(&buf, daemon.MaxStringSize)
	assert.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, result)
}

func TestWriteReadStringsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := daemon.WriteStrings(&buf, []string{})
	assert.NoError(t, err)
	result, err := daemon.ReadStrings(&buf, daemon.MaxStringSize)
	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestReadPathInfo(t *testing.T) {
	var buf bytes.Buffer
	writeTestString(&buf, "/nix/store/abc-foo.drv")       // deriver
	writeTestString(&buf, "abcdef1234567890")              // narHash, hex
	writeTestUint64(&buf, 1)                               // references count
	writeTestString(&buf, "/nix/store/def-bar")            // reference
	writeTestUint64(&buf, 1700000000)                      // registrationTime
	writeTestUint64(&buf, 12345)                           // narSize
	writeTestUint64(&buf, 1)                               // ultimate = true
	writeTestUint64(&buf, 1)                               // sigs count
	writeTestString(&buf, "cache.example.com-1:abc123sig") // signature
	writeTestString(&buf, "")                              // contentAddress

	info, err := daemon.ReadPathInfo(&buf, "/nix/store/xyz-test")
	assert.NoError(t, err)
	assert.Equal(t, "/nix/store/xyz-test", info.StorePath)
	assert.Equal(t, "/nix/store/abc-foo.drv", info.Deriver)
	assert.Equal(t, "abcdef1234567890", info.NarHash)
	assert.Equal(t, []string{"/nix/store/def-bar"}, info.References)
	assert.Equal(t, uint64(1700000000), info.RegistrationTime)
	assert.Equal(t, uint64(12345), info.NarSize)
	assert.True(t, info.Ultimate)
	assert.Equal(t, []string{"cache.example.com-1:abc123sig"}, info.Sigs)
	assert.Equal(t, "", info.CA)
}

func TestReadPathInfoNoReferencesOrSigs(t *testing.T) {
	var buf bytes.Buffer
	writeTestString(&buf, "")          // deriver
	writeTestString(&buf, "deadbeef")  // narHash
	writeTestUint64(&buf, 0)           // references count
	writeTestUint64(&buf, 1700000000)  // registrationTime
	writeTestUint64(&buf, 999)         // narSize
	writeTestUint64(&buf, 0)           // ultimate = false
	writeTestUint64(&buf, 0)           // sigs count
	writeTestString(&buf, "fixed:r:sha256:abc")

	info, err := daemon.ReadPathInfo(&buf, "/nix/store/xyz-test")
	assert.NoError(t, err)
	assert.Empty(t, info.Deriver)
	assert.Empty(t, info.References)
	assert.False(t, info.Ultimate)
	assert.Empty(t, info.Sigs)
	assert.Equal(t, "fixed:r:sha256:abc", info.CA)
}
