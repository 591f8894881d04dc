// Package wire implements the little-endian, 8-byte-aligned framing used by
// the Nix daemon protocol: unsigned 64-bit integers, length-prefixed byte
// strings, and booleans encoded as integers.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrStringTooLong is returned by ReadString when a frame's declared length
// exceeds the caller-supplied limit.
var ErrStringTooLong = errors.New("wire: string exceeds maximum size")

// WriteUint64 writes v as 8 little-endian bytes.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], v)

	_, err := w.Write(buf[:])

	return err
}

// ReadUint64 reads 8 little-endian bytes.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteBool writes b as a uint64 (0 or 1).
func WriteBool(w io.Writer, b bool) error {
	if b {
		return WriteUint64(w, 1)
	}

	return WriteUint64(w, 0)
}

// ReadBool reads a uint64 and interprets any nonzero value as true.
func ReadBool(r io.Reader) (bool, error) {
	v, err := ReadUint64(r)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// Padding returns the number of zero bytes needed to round size up to a
// multiple of 8.
func Padding(size uint64) uint64 {
	return (8 - size%8) % 8
}

// WriteString writes s as a u64 length, the raw bytes, then zero padding up
// to the next 8-byte boundary.
func WriteString(w io.Writer, s string) error {
	if err := WriteUint64(w, uint64(len(s))); err != nil {
		return err
	}

	if _, err := io.WriteString(w, s); err != nil {
		return err
	}

	return writeZeroPad(w, uint64(len(s)))
}

// WriteBytes writes b as a u64 length, the raw bytes, then zero padding up
// to the next 8-byte boundary.
func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteUint64(w, uint64(len(b))); err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		return err
	}

	return writeZeroPad(w, uint64(len(b)))
}

var zeroes [8]byte //nolint:gochecknoglobals

func writeZeroPad(w io.Writer, size uint64) error {
	pad := Padding(size)
	if pad == 0 {
		return nil
	}

	_, err := w.Write(zeroes[:pad])

	return err
}

// ReadString reads a length-prefixed, zero-padded string. maxSize bounds the
// declared length to guard against malformed or hostile frames.
func ReadString(r io.Reader, maxSize uint64) (string, error) {
	b, err := ReadBytes(r, maxSize)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ReadBytes reads a length-prefixed, zero-padded byte string.
func ReadBytes(r io.Reader, maxSize uint64) ([]byte, error) {
	size, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}

	if size > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrStringTooLong, size, maxSize)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	pad := Padding(size)
	if pad > 0 {
		var padBuf [8]byte
		if _, err := io.ReadFull(r, padBuf[:pad]); err != nil {
			return nil, err
		}

		for _, b := range padBuf[:pad] {
			if b != 0 {
				return nil, fmt.Errorf("wire: non-zero padding byte")
			}
		}
	}

	return buf, nil
}
