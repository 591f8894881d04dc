// Package signing implements Nix's narinfo signing scheme: an ed25519
// detached signature over a fingerprint string, rendered as
// "<key-name>:<base64-signature>".
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Key is a named ed25519 signing key, as stored in a Nix "sign_key" file:
// "<name>:<base64 of 64 raw bytes>".
type Key struct {
	Name string
	key  ed25519.PrivateKey
}

// ParseKeyFile reads and parses a Nix secret-key file.
func ParseKeyFile(path string) (Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Key{}, fmt.Errorf("signing: read key file %s: %w", path, err)
	}

	return ParseKeyString(strings.TrimSpace(string(raw)))
}

// ParseKeyString parses a "<name>:<base64>" secret key, the format Nix
// writes to sign_key files.
func ParseKeyString(s string) (Key, error) {
	name, b64, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, errors.New("signing: key does not contain a ':' separator")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return Key{}, fmt.Errorf("signing: base64 decode key: %w", err)
	}

	if len(raw) != ed25519.PrivateKeySize {
		return Key{}, fmt.Errorf("signing: invalid key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	return Key{Name: name, key: ed25519.PrivateKey(raw)}, nil
}

// Sign signs msg and returns it rendered as "<name>:<base64-signature>", the
// form stored in a narinfo's Sig lines.
func (k Key) Sign(msg string) string {
	sig := ed25519.Sign(k.key, []byte(msg))

	return k.Name + ":" + base64.StdEncoding.EncodeToString(sig)
}

// Fingerprint builds the canonical string signed for a store path, per
// Nix's narinfo fingerprint format:
//
//	1;<store-path>;<nar-hash>;<nar-size>;<comma-joined full reference paths>
//
// narHash must be in "sha256:<nix32>" display form. storePath and every
// entry of refs must live under storeDir.
func Fingerprint(storeDir, storePath, narHash string, narSize uint64, refs []string) (string, error) {
	if !strings.HasPrefix(storePath, storeDir) {
		return "", fmt.Errorf("signing: store path %q does not start with store dir %q", storePath, storeDir)
	}

	if !strings.HasPrefix(narHash, "sha256:") {
		return "", fmt.Errorf("signing: nar hash %q is not sha256", narHash)
	}

	if len(narHash) != len("sha256:")+52 {
		return "", fmt.Errorf("signing: nar hash %q has wrong length %d, expected %d", narHash, len(narHash), len("sha256:")+52)
	}

	for _, ref := range refs {
		if !strings.HasPrefix(ref, storeDir) {
			return "", fmt.Errorf("signing: reference path %q does not start with store dir %q", ref, storeDir)
		}
	}

	return fmt.Sprintf("1;%s;%s;%d;%s", storePath, narHash, narSize, strings.Join(refs, ",")), nil
}
