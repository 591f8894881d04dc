// Package narinfo assembles the per-store-path descriptor served at the
// "<hash>.narinfo" route, in both its text/x-nix-narinfo and JSON forms.
package narinfo

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nix-community/go-cache-daemon/pkg/daemon"
	"github.com/nix-community/go-cache-daemon/pkg/nixbase32"
	"github.com/nix-community/go-cache-daemon/pkg/signing"
)

// Info is the descriptor for a single store path, shaped to match both the
// JSON and text/x-nix-narinfo encodings.
type Info struct {
	StorePath   string   `json:"store_path"`
	URL         string   `json:"url"`
	Compression string   `json:"compression"`
	NarHash     string   `json:"nar_hash"`
	NarSize     uint64   `json:"nar_size"`
	References  []string `json:"references"`
	Deriver     string   `json:"deriver,omitempty"`
	Sigs        []string `json:"sigs"`
	CA          string   `json:"ca,omitempty"`
}

// Build assembles an Info for storePath from the daemon's PathInfo.
// hashPart is the nix32 hash used in the request URL, reused verbatim in
// the narinfo's own download URL. When keys is non-empty, Info.Sigs holds
// freshly computed signatures over the path's fingerprint; otherwise it
// falls back to whatever signatures the daemon itself reports. If the
// fingerprint cannot be computed (a path outside virtualStore, a malformed
// nar hash), no key signs and the daemon's signatures are used as well.
func Build(virtualStore, storePath, hashPart string, info *daemon.PathInfo, keys []signing.Key) (*Info, error) {
	hashBytes, err := hex.DecodeString(info.NarHash)
	if err != nil {
		return nil, fmt.Errorf("narinfo: decode nar hash for %s: %w", storePath, err)
	}

	nar32 := nixbase32.EncodeToString(hashBytes)
	narHash := "sha256:" + nar32

	ni := &Info{
		StorePath:   storePath,
		URL:         fmt.Sprintf("nar/%s.nar?hash=%s", nar32, hashPart),
		Compression: "none",
		NarHash:     narHash,
		NarSize:     info.NarSize,
		CA:          info.CA,
	}

	if info.Deriver != "" {
		ni.Deriver = info.Deriver
	}

	if len(info.References) > 0 {
		ni.References = make([]string, len(info.References))
		for i, ref := range info.References {
			ni.References[i] = filepath.Base(ref)
		}
	}

	if fp, err := signing.Fingerprint(virtualStore, storePath, narHash, info.NarSize, info.References); err == nil {
		for _, key := range keys {
			ni.Sigs = append(ni.Sigs, key.Sign(fp))
		}
	}

	if len(ni.Sigs) == 0 {
		ni.Sigs = info.Sigs
	}

	return ni, nil
}

// FormatText renders the narinfo in the text/x-nix-narinfo wire format: one
// "Key: value" line per field, FileHash/FileSize duplicating NarHash/NarSize
// since compression is always "none", a blank trailing line.
func FormatText(ni *Info) string {
	lines := []string{
		"StorePath: " + ni.StorePath,
		"URL: " + ni.URL,
		"Compression: " + ni.Compression,
		"FileHash: " + ni.NarHash,
		fmt.Sprintf("FileSize: %d", ni.NarSize),
		"NarHash: " + ni.NarHash,
		fmt.Sprintf("NarSize: %d", ni.NarSize),
	}

	if len(ni.References) > 0 {
		lines = append(lines, "References: "+strings.Join(ni.References, " "))
	}

	if ni.Deriver != "" {
		lines = append(lines, "Deriver: "+ni.Deriver)
	}

	for _, sig := range ni.Sigs {
		lines = append(lines, "Sig: "+sig)
	}

	if ni.CA != "" {
		lines = append(lines, "CA: "+ni.CA)
	}

	lines = append(lines, "")

	return strings.Join(lines, "\n")
}
