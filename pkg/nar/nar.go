// Package nar serializes a filesystem tree into the NAR (Nix ARchive)
// format: a flat, self-describing, byte-exact encoding of a directory tree
// that Nix uses for both store-path hashing and binary-cache transport.
//
// Dump walks the tree with an explicit stack rather than recursion, so a
// deeply nested store path never grows the Go call stack, and so the walk
// can be interleaved with streaming writes one chunk at a time.
package nar

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/nix-community/go-cache-daemon/pkg/wire"
)

const chunkSize = 16384

const caseHackSuffix = "~nix~case~hack~"

// Dump writes the NAR serialization of the filesystem tree rooted at path to w.
func Dump(w io.Writer, path string) error {
	if err := writeTokens(w, "nix-archive-1"); err != nil {
		return err
	}

	root, err := newFrame(path)
	if err != nil {
		return err
	}

	stack := []*frame{root}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		switch {
		case top.info.IsDir():
			next, pushed, err := stepDirectory(w, top)
			if err != nil {
				return err
			}

			if pushed {
				stack = append(stack, next)
			} else {
				stack = stack[:len(stack)-1]
			}

		case top.info.Mode().IsRegular():
			if err := dumpFile(w, top); err != nil {
				return err
			}

			stack = stack[:len(stack)-1]

		case top.info.Mode()&fs.ModeSymlink != 0:
			if err := dumpSymlink(w, top); err != nil {
				return err
			}

			stack = stack[:len(stack)-1]

		default:
			return fmt.Errorf("nar: unsupported file type at %s: %v", top.path, top.info.Mode())
		}
	}

	return nil
}

// frame is one stack entry: a filesystem path together with the directory
// state needed to resume iterating its children across multiple stack
// visits.
type frame struct {
	path       string
	info       fs.FileInfo
	children   []childEntry // sorted by NAR name, consumed front-to-back
	firstChild bool
}

type childEntry struct {
	narName  string // name as it appears in the archive, case-hack stripped
	realName string // name to use when opening the file on disk
}

func newFrame(path string) (*frame, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("nar: stat %s: %w", path, err)
	}

	f := &frame{path: path, info: info, firstChild: true}

	if !info.IsDir() {
		return f, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("nar: read dir %s: %w", path, err)
	}

	byNarName := make(map[string]string, len(entries))

	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}

		byNarName[stripCaseHackSuffix(name)] = name
	}

	narNames := make([]string, 0, len(byNarName))
	for narName := range byNarName {
		narNames = append(narNames, narName)
	}

	sort.Strings(narNames)

	f.children = make([]childEntry, len(narNames))
	for i, narName := range narNames {
		f.children[i] = childEntry{narName: narName, realName: byNarName[narName]}
	}

	return f, nil
}

// stripCaseHackSuffix drops a "~nix~case~hack~<N>" suffix Nix appends to
// disambiguate files that differ only in case on a case-insensitive
// filesystem. Only macOS ever produces such suffixes, so this is a no-op
// elsewhere.
func stripCaseHackSuffix(name string) string {
	if runtime.GOOS != "darwin" {
		return name
	}

	if idx := strings.Index(name, caseHackSuffix); idx >= 0 {
		return name[:idx]
	}

	return name
}

// stepDirectory advances a directory frame by one step: opening the
// directory marker on first visit, emitting the next child entry header and
// pushing its frame, or closing the directory once children are exhausted.
// The bool return reports whether a new frame was pushed (true) or the
// current one should be popped (false).
func stepDirectory(w io.Writer, f *frame) (*frame, bool, error) {
	if f.firstChild {
		if err := writeTokens(w, "(", "type", "directory"); err != nil {
			return nil, false, err
		}

		if len(f.children) == 0 {
			return nil, false, writeTokens(w, ")")
		}
	}

	if !f.firstChild {
		if err := writeTokens(w, ")"); err != nil {
			return nil, false, err
		}
	}

	f.firstChild = false

	if len(f.children) == 0 {
		return nil, false, writeTokens(w, ")")
	}

	child := f.children[0]
	f.children = f.children[1:]

	if err := writeTokens(w, "entry", "(", "name", child.narName, "node"); err != nil {
		return nil, false, err
	}

	next, err := newFrame(filepath.Join(f.path, child.realName))
	if err != nil {
		return nil, false, err
	}

	return next, true, nil
}

func dumpFile(w io.Writer, f *frame) error {
	executable := f.info.Mode()&0o100 != 0

	if executable {
		if err := writeTokens(w, "(", "type", "regular", "executable", "", "contents"); err != nil {
			return err
		}
	} else {
		if err := writeTokens(w, "(", "type", "regular", "contents"); err != nil {
			return err
		}
	}

	size := uint64(f.info.Size())
	if err := wire.WriteUint64(w, size); err != nil {
		return fmt.Errorf("nar: write content length for %s: %w", f.path, err)
	}

	if err := dumpContents(w, f.path, size); err != nil {
		return err
	}

	return writeTokens(w, ")")
}

// dumpContents streams the file's bytes, followed by zero padding out to
// the next 8-byte boundary.
func dumpContents(w io.Writer, path string, expected uint64) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("nar: open %s: %w", path, err)
	}
	defer file.Close()

	if err := copyContents(w, file, expected, path); err != nil {
		return err
	}

	if pad := wire.Padding(expected); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("nar: write padding for %s: %w", path, err)
		}
	}

	return nil
}

// copyContents copies exactly expected bytes from r to w, reading in fixed
// chunkSize reads regardless of how many bytes remain. Reading fixed-size
// chunks rather than truncating the final read to the remaining count is
// what lets a single over-long read be caught as ErrModifiedDuringDump
// instead of silently stopping at the stat-time size; a short read that
// never reaches expected is ErrTruncatedFile.
func copyContents(w io.Writer, r io.Reader, expected uint64, label string) error {
	var written uint64

	buf := make([]byte, chunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uint64(n) > expected-written {
				return fmt.Errorf("%w: %s", ErrModifiedDuringDump, label)
			}

			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("nar: write contents for %s: %w", label, werr)
			}

			written += uint64(n)
		}

		if err != nil {
			if err == io.EOF {
				break
			}

			return fmt.Errorf("nar: read %s: %w", label, err)
		}
	}

	if written < expected {
		return fmt.Errorf("%w: %s: read %d of %d bytes", ErrTruncatedFile, label, written, expected)
	}

	return nil
}

func dumpSymlink(w io.Writer, f *frame) error {
	target, err := os.Readlink(f.path)
	if err != nil {
		return fmt.Errorf("nar: readlink %s: %w", f.path, err)
	}

	return writeTokens(w, "(", "type", "symlink", "target", target, ")")
}

// writeTokens writes each string as a length-prefixed, zero-padded field,
// the primitive NAR is built from.
func writeTokens(w io.Writer, tokens ...string) error {
	var buf bytes.Buffer

	for _, t := range tokens {
		if err := wire.WriteString(&buf, t); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())

	return err
}
