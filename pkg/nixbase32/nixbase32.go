// Package nixbase32 implements Nix's non-standard base-32 alphabet, used to
// render store path hashes and NAR hashes. It omits the characters e, o, t,
// u to avoid accidental profanity and to keep the alphabet case-insensitive
// under common filesystems.
package nixbase32

import (
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdfghijklmnpqrsvwxyz"

var charIndex = func() map[byte]byte {
	m := make(map[byte]byte, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = byte(i)
	}

	return m
}()

// EncodedLen returns the length of the nix32 encoding of n input bytes.
func EncodedLen(n int) int {
	if n == 0 {
		return 0
	}

	return (n*8-1)/5 + 1
}

// EncodeToString encodes data using Nix's base-32 alphabet. The encoding
// reads bits from the least-significant end, so the output is not a direct
// analogue of RFC 4648 base-32.
func EncodeToString(data []byte) string {
	length := EncodedLen(len(data))
	out := make([]byte, length)

	for n := 0; n < length; n++ {
		b := (length - 1 - n) * 5
		i := b / 8
		j := uint(b % 8)

		v1 := data[i] >> j

		var v2 byte
		if j != 0 && i+1 < len(data) {
			v2 = data[i+1] << (8 - j)
		}

		out[n] = alphabet[(v1|v2)&0x1f]
	}

	return string(out)
}

// DecodeString decodes a Nix base-32 string back into bytes. decodedLen is
// the expected output length in bytes, needed because the encoding does not
// self-describe it exactly (the final character may carry fewer than 5
// significant bits).
func DecodeString(s string, decodedLen int) ([]byte, error) {
	if EncodedLen(decodedLen) != len(s) {
		return nil, fmt.Errorf("nixbase32: wrong input length %d for %d decoded bytes", len(s), decodedLen)
	}

	out := make([]byte, decodedLen)

	for n := 0; n < len(s); n++ {
		c := s[len(s)-1-n]

		digit, ok := charIndex[c]
		if !ok {
			return nil, fmt.Errorf("nixbase32: invalid character %q at position %d", c, len(s)-1-n)
		}

		b := n * 5
		i := b / 8
		j := uint(b % 8)

		out[i] |= digit << j

		if j > 3 {
			carry := digit >> (8 - j)
			if i+1 < decodedLen {
				out[i+1] |= carry
			} else if carry != 0 {
				return nil, fmt.Errorf("nixbase32: non-zero overflow bits decoding %q", s)
			}
		}
	}

	return out, nil
}

// IsValid reports whether s contains only characters from the Nix base-32
// alphabet.
func IsValid(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		if r > 0x7f {
			return true
		}

		_, ok := charIndex[byte(r)]

		return !ok
	}) == -1
}
