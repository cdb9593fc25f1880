package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewin671/oneline-editor/internal/rpcerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestStore_CreateReadUpdateDelete(t *testing.T) {
	s := newTestStore(t)

	uri, err := s.PathToURI(filepath.Join(s.Root(), "main.go"))
	require.NoError(t, err)

	require.NoError(t, s.CreateFile(uri, []byte("package main\n"), "go"))
	assert.True(t, s.HasFile(uri))

	file, err := s.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", file.Text)
	assert.Equal(t, 1, file.Version)
	assert.Equal(t, "go", file.LanguageID)

	version, err := s.UpdateFile(uri, []byte("package main\n\nfunc main() {}\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	file, err = s.ReadFile(uri)
	require.NoError(t, err)
	assert.Contains(t, file.Text, "func main")
	assert.Equal(t, 2, file.Version)
	assert.Equal(t, "go", file.LanguageID)

	require.NoError(t, s.DeleteFile(uri))
	assert.False(t, s.HasFile(uri))
}

func TestStore_CreateFileRejectsExisting(t *testing.T) {
	s := newTestStore(t)
	uri, err := s.PathToURI(filepath.Join(s.Root(), "a.go"))
	require.NoError(t, err)

	require.NoError(t, s.CreateFile(uri, []byte("x"), "go"))
	err = s.CreateFile(uri, []byte("y"), "go")
	assert.True(t, rpcerr.Is(err, rpcerr.KindSecurityError))
}

func TestStore_UpdateMissingFileIsDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	uri, err := s.PathToURI(filepath.Join(s.Root(), "missing.go"))
	require.NoError(t, err)

	_, err = s.UpdateFile(uri, []byte("x"))
	assert.True(t, rpcerr.Is(err, rpcerr.KindDocumentNotFound))
}

func TestStore_URIToPathRejectsEscape(t *testing.T) {
	s := newTestStore(t)

	cases := []string{
		"file:///../../etc/passwd",
		"file://../escape.go",
		"file:///a/../../b.go",
	}
	for _, uri := range cases {
		_, err := s.URIToPath(uri)
		assert.True(t, rpcerr.Is(err, rpcerr.KindSecurityError), "expected security error for %q", uri)
	}
}

func TestStore_URIToPathRejectsNonFileScheme(t *testing.T) {
	s := newTestStore(t)
	_, err := s.URIToPath("http://example.com/a.go")
	assert.True(t, rpcerr.Is(err, rpcerr.KindSecurityError))
}

func TestStore_RenamePath(t *testing.T) {
	s := newTestStore(t)
	fromURI, err := s.PathToURI(filepath.Join(s.Root(), "old.go"))
	require.NoError(t, err)
	toURI, err := s.PathToURI(filepath.Join(s.Root(), "sub", "new.go"))
	require.NoError(t, err)

	require.NoError(t, s.CreateFile(fromURI, []byte("x"), "go"))
	require.NoError(t, s.RenamePath(fromURI, toURI))

	assert.False(t, s.HasFile(fromURI))
	assert.True(t, s.HasFile(toURI))

	file, err := s.ReadFile(toURI)
	require.NoError(t, err)
	assert.Equal(t, "go", file.LanguageID, "metadata must follow the file across a rename")
}

func TestStore_ListTreeSortsDirsFirst(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "pkg", "b.go"), []byte("x"), 0o644))

	entries, err := s.ListTree()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "pkg", entries[0].Path)
}

func TestStore_ListTreeSkipsDotfiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), ".git", "objects"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ".git", "HEAD"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ".env"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "main.go"), []byte("x"), 0o644))

	entries, err := s.ListTree()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "main.go", entries[0].Path)
}

func TestStore_CreateThenReadRoundTripsTextVersionAndLanguageID(t *testing.T) {
	s := newTestStore(t)
	uri, err := s.PathToURI(filepath.Join(s.Root(), "main.go"))
	require.NoError(t, err)

	require.NoError(t, s.CreateFile(uri, []byte("package main\n"), "go"))

	file, err := s.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", file.Text)
	assert.Equal(t, 1, file.Version)
	assert.Equal(t, "go", file.LanguageID)
}

func TestStore_DeletePathRefusesRoot(t *testing.T) {
	s := newTestStore(t)
	rootURI, err := s.PathToURI(s.Root())
	require.NoError(t, err)
	err = s.DeletePath(rootURI)
	assert.True(t, rpcerr.Is(err, rpcerr.KindSecurityError))
}

func TestLanguageIDForURI(t *testing.T) {
	id, ok := LanguageIDForURI("file:///foo/bar.go")
	require.True(t, ok)
	assert.Equal(t, "go", id)

	id, ok = LanguageIDForURI("file:///foo/bar.tsx")
	require.True(t, ok)
	assert.Equal(t, "typescriptreact", id)

	_, ok = LanguageIDForURI("file:///foo/bar.unknown")
	assert.False(t, ok)
}
