// Package narlist builds the JSON directory listing served at the
// "<hash>.ls" route: a tagged tree describing a store path's structure
// without dumping its contents. It mirrors the shape `nix nar ls --json
// --recursive` produces, minus narOffset (always null here; computing true
// byte offsets would require walking the NAR itself).
package narlist

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Kind tags the variant of an Entry.
type Kind int

const (
	KindDirectory Kind = iota
	KindRegular
	KindSymlink
)

// Entry is one node of the listing tree. Exactly the fields relevant to
// Kind are populated; MarshalJSON renders the tagged-union shape the
// reference tooling produces.
type Entry struct {
	Kind       Kind
	Entries    map[string]*Entry // KindDirectory
	Size       uint64            // KindRegular
	Executable bool              // KindRegular; any exec bit, not just owner's
	Target     string            // KindSymlink
}

// MarshalJSON renders the entry as {"type": ..., ...}, matching the shape
// produced by `nix nar ls --json`. executable is omitted entirely when
// false, and narOffset is always present but always null.
func (e *Entry) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindDirectory:
		return json.Marshal(struct {
			Type    string            `json:"type"`
			Entries map[string]*Entry `json:"entries"`
		}{"directory", e.Entries})

	case KindRegular:
		if e.Executable {
			return json.Marshal(struct {
				Type       string  `json:"type"`
				NarOffset  *uint64 `json:"narOffset"`
				Size       uint64  `json:"size"`
				Executable bool    `json:"executable"`
			}{"regular", nil, e.Size, true})
		}

		return json.Marshal(struct {
			Type      string  `json:"type"`
			NarOffset *uint64 `json:"narOffset"`
			Size      uint64  `json:"size"`
		}{"regular", nil, e.Size})

	case KindSymlink:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Target string `json:"target"`
		}{"symlink", e.Target})

	default:
		return nil, fmt.Errorf("narlist: unknown entry kind %d", e.Kind)
	}
}

// List is the top-level document served for a ".ls" request.
type List struct {
	Version uint16 `json:"version"`
	Root    *Entry `json:"root"`
}

// Build walks the filesystem tree rooted at path and produces its listing.
// Directories are walked with an explicit stack rather than recursion.
func Build(path string) (*List, error) {
	root, err := buildEntry(path)
	if err != nil {
		return nil, err
	}

	return &List{Version: 1, Root: root}, nil
}

func buildEntry(path string) (*Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("narlist: stat %s: %w", path, err)
	}

	switch {
	case info.Mode().IsRegular():
		return fileEntry(path, info), nil

	case info.Mode()&fs.ModeSymlink != 0:
		return symlinkEntry(path)

	case info.IsDir():
		return buildDirectory(path)

	default:
		return nil, fmt.Errorf("narlist: unsupported file type at %s: %v", path, info.Mode())
	}
}

// fileEntry reports a regular file as executable when any of its mode's
// execute bits is set (mode&0o111) and unix.Access(X_OK) also grants this
// process execute access.
func fileEntry(path string, info fs.FileInfo) *Entry {
	return &Entry{
		Kind:       KindRegular,
		Size:       uint64(info.Size()),
		Executable: unix.Access(path, unix.X_OK) == nil && info.Mode()&0o111 != 0,
	}
}

func symlinkEntry(path string) (*Entry, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return nil, fmt.Errorf("narlist: readlink %s: %w", path, err)
	}

	return &Entry{Kind: KindSymlink, Target: target}, nil
}

// frame is one stack entry for a directory being walked: the directory's
// own in-progress Entry, and the queue of child names left to visit.
type frame struct {
	path    string
	entry   *Entry
	pending []string
	pos     int
}

func buildDirectory(path string) (*Entry, error) {
	children, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("narlist: read dir %s: %w", path, err)
	}

	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}

	var root *Entry

	stack := []*frame{{
		path:    path,
		entry:   &Entry{Kind: KindDirectory, Entries: map[string]*Entry{}},
		pending: names,
	}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.pos >= len(top.pending) {
			stack = stack[:len(stack)-1]

			if len(stack) == 0 {
				root = top.entry

				break
			}

			parent := stack[len(stack)-1]
			parent.entry.Entries[filepath.Base(top.path)] = top.entry

			continue
		}

		name := top.pending[top.pos]
		top.pos++

		childPath := filepath.Join(top.path, name)

		childInfo, err := os.Lstat(childPath)
		if err != nil {
			return nil, fmt.Errorf("narlist: stat %s: %w", childPath, err)
		}

		switch {
		case childInfo.Mode().IsRegular():
			top.entry.Entries[name] = fileEntry(childPath, childInfo)

		case childInfo.Mode()&fs.ModeSymlink != 0:
			se, err := symlinkEntry(childPath)
			if err != nil {
				return nil, err
			}

			top.entry.Entries[name] = se

		case childInfo.IsDir():
			grandchildren, err := os.ReadDir(childPath)
			if err != nil {
				return nil, fmt.Errorf("narlist: read dir %s: %w", childPath, err)
			}

			grandNames := make([]string, 0, len(grandchildren))
			for _, g := range grandchildren {
				grandNames = append(grandNames, g.Name())
			}

			stack = append(stack, &frame{
				path:    childPath,
				entry:   &Entry{Kind: KindDirectory, Entries: map[string]*Entry{}},
				pending: grandNames,
			})

		default:
			return nil, fmt.Errorf("narlist: unsupported file type at %s: %v", childPath, childInfo.Mode())
		}
	}

	return root, nil
}
