package narlist_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nix-community/go-cache-daemon/pkg/narlist"
)

func buildS1Tree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("hello\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "exec"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Symlink("target", filepath.Join(root, "link")))

	return root
}

func TestBuildDirectoryShape(t *testing.T) {
	root := buildS1Tree(t)

	list, err := narlist.Build(root)
	require.NoError(t, err)

	assert.Equal(t, uint16(1), list.Version)
	assert.Equal(t, narlist.KindDirectory, list.Root.Kind)
	assert.Len(t, list.Root.Entries, 3)

	file := list.Root.Entries["file"]
	require.NotNil(t, file)
	assert.Equal(t, narlist.KindRegular, file.Kind)
	assert.Equal(t, uint64(6), file.Size)
	assert.False(t, file.Executable)

	dir := list.Root.Entries["dir"]
	require.NotNil(t, dir)
	assert.Equal(t, narlist.KindDirectory, dir.Kind)
	assert.Len(t, dir.Entries, 1)

	exec := dir.Entries["exec"]
	require.NotNil(t, exec)
	assert.Equal(t, narlist.KindRegular, exec.Kind)
	assert.True(t, exec.Executable)

	link := list.Root.Entries["link"]
	require.NotNil(t, link)
	assert.Equal(t, narlist.KindSymlink, link.Kind)
	assert.Equal(t, "target", link.Target)
}

func TestBuildSingleFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "only")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	list, err := narlist.Build(file)
	require.NoError(t, err)
	assert.Equal(t, narlist.KindRegular, list.Root.Kind)
	assert.Equal(t, uint64(1), list.Root.Size)
}

func TestMarshalJSONShape(t *testing.T) {
	root := buildS1Tree(t)

	list, err := narlist.Build(root)
	require.NoError(t, err)

	got, err := json.Marshal(list)
	require.NoError(t, err)

	want := `{
		"version": 1,
		"root": {
			"type": "directory",
			"entries": {
				"file": {"type": "regular", "narOffset": null, "size": 6},
				"dir": {
					"type": "directory",
					"entries": {
						"exec": {"type": "regular", "narOffset": null, "size": 10, "executable": true}
					}
				},
				"link": {"type": "symlink", "target": "target"}
			}
		}
	}`

	opts := jsondiff.DefaultJSONOptions()

	diff, explanation := jsondiff.Compare(got, []byte(want), &opts)
	assert.Equal(t, jsondiff.FullMatch, diff, explanation)
}

func TestMarshalJSONOmitsExecutableWhenFalse(t *testing.T) {
	entry := &narlist.Entry{Kind: narlist.KindRegular, Size: 4}

	got, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"regular","narOffset":null,"size":4}`, string(got))
}

func TestMarshalJSONEmptyDirectoryRendersEmptyObject(t *testing.T) {
	entry := &narlist.Entry{Kind: narlist.KindDirectory, Entries: map[string]*narlist.Entry{}}

	got, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"directory","entries":{}}`, string(got))
}
