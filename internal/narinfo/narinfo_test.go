package narinfo_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nix-community/go-cache-daemon/internal/narinfo"
	"github.com/nix-community/go-cache-daemon/pkg/daemon"
	"github.com/nix-community/go-cache-daemon/pkg/signing"
)

func testKey(t *testing.T, name string) signing.Key {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	key, err := signing.ParseKeyString(name + ":" + base64.StdEncoding.EncodeToString(priv))
	require.NoError(t, err)

	return key
}

func testPathInfo() *daemon.PathInfo {
	hashBytes, _ := hex.DecodeString(strings.Repeat("ab", 32))

	return &daemon.PathInfo{
		StorePath:  "/nix/store/26xbg1ndr7hbcncrlf9nhx5is2b25d13-hello-2.12.1",
		NarHash:    hex.EncodeToString(hashBytes),
		NarSize:    226560,
		References: []string{"/nix/store/26xbg1ndr7hbcncrlf9nhx5is2b25d13-hello-2.12.1"},
		Sigs:       []string{"daemon-reported:abc123"},
	}
}

func TestBuildWithSigningKeys(t *testing.T) {
	info := testPathInfo()
	key := testKey(t, "cache.example.com-1")

	ni, err := narinfo.Build("/nix/store", info.StorePath, "26xbg1ndr7hbcncrlf9nhx5is2b25d13", info, []signing.Key{key})
	require.NoError(t, err)

	assert.Equal(t, info.StorePath, ni.StorePath)
	assert.Equal(t, "none", ni.Compression)
	assert.Equal(t, []string{"26xbg1ndr7hbcncrlf9nhx5is2b25d13-hello-2.12.1"}, ni.References)
	require.Len(t, ni.Sigs, 1)
	assert.True(t, strings.HasPrefix(ni.Sigs[0], "cache.example.com-1:"))
}

func TestBuildFallsBackToDaemonSigsWithoutKeys(t *testing.T) {
	info := testPathInfo()

	ni, err := narinfo.Build("/nix/store", info.StorePath, "26xbg1ndr7hbcncrlf9nhx5is2b25d13", info, nil)
	require.NoError(t, err)

	assert.Equal(t, info.Sigs, ni.Sigs)
}

func TestBuildOmitsDeriverAndCAWhenAbsent(t *testing.T) {
	info := testPathInfo()

	ni, err := narinfo.Build("/nix/store", info.StorePath, "26xbg1ndr7hbcncrlf9nhx5is2b25d13", info, nil)
	require.NoError(t, err)

	assert.Empty(t, ni.Deriver)
	assert.Empty(t, ni.CA)
}

func TestFormatTextFieldOrder(t *testing.T) {
	info := testPathInfo()
	info.Deriver = "/nix/store/xxx.drv"
	info.CA = "fixed:r:sha256:abc"

	ni, err := narinfo.Build("/nix/store", info.StorePath, "26xbg1ndr7hbcncrlf9nhx5is2b25d13", info, nil)
	require.NoError(t, err)

	text := narinfo.FormatText(ni)
	lines := strings.Split(text, "\n")

	require.True(t, strings.HasPrefix(lines[0], "StorePath: "))
	require.True(t, strings.HasPrefix(lines[1], "URL: "))
	require.True(t, strings.HasPrefix(lines[2], "Compression: "))
	require.True(t, strings.HasPrefix(lines[3], "FileHash: "))
	require.True(t, strings.HasPrefix(lines[4], "FileSize: "))
	require.True(t, strings.HasPrefix(lines[5], "NarHash: "))
	require.True(t, strings.HasPrefix(lines[6], "NarSize: "))
	require.True(t, strings.HasPrefix(lines[7], "References: "))
	require.True(t, strings.HasPrefix(lines[8], "Deriver: "))
	require.True(t, strings.HasPrefix(lines[9], "Sig: "))
	require.True(t, strings.HasPrefix(lines[10], "CA: "))
	assert.Equal(t, "", lines[len(lines)-1])
}
