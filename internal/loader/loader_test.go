package loader

import (
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	mu    sync.Mutex
	files map[string][]byte

	// renameNoReplace makes Rename fail with fs.ErrExist when the
	// destination exists, as it does on some platforms.
	renameNoReplace bool
	renameErr       error
	removed         []string
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (m *MemFS) WriteFile(path string, data []byte, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *MemFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renameErr != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: m.renameErr}
	}
	data, ok := m.files[oldpath]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	if _, exists := m.files[newpath]; exists && m.renameNoReplace {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
	}
	m.files[newpath] = data
	delete(m.files, oldpath)
	return nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MemFS) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0600 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestParse_TOML(t *testing.T) {
	doc, err := Parse(FormatTOML, "inline", []byte(`
top = 1

[App]
name = "demo"
port = 8080
ratio = 2.5
enabled = true
started = 2024-01-01T00:00:00Z
day = 2024-01-02
langs = ["en", "de"]
`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), doc["top"])
	app, ok := doc["App"].(map[string]any)
	require.True(t, ok, "expected App to be a map")
	assert.Equal(t, "demo", app["name"])
	assert.Equal(t, int64(8080), app["port"])
	assert.Equal(t, 2.5, app["ratio"])
	assert.Equal(t, true, app["enabled"])
	assert.IsType(t, time.Time{}, app["started"])
	assert.Equal(t, toml.LocalDate{Year: 2024, Month: 1, Day: 2}, app["day"])
	assert.Equal(t, []any{"en", "de"}, app["langs"])
}

func TestParse_TOMLEmpty(t *testing.T) {
	doc, err := Parse(FormatTOML, "inline", nil)
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Empty(t, doc)
}

func TestParse_TOMLError(t *testing.T) {
	_, err := Parse(FormatTOML, "broken.toml", []byte("[App]\nname = \n"))
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.toml", perr.Path)
	assert.Positive(t, perr.Line)
	assert.Contains(t, perr.Error(), "broken.toml")
	assert.ErrorIs(t, err, ErrParse)
}

func TestEncode_TOMLRoundTrip(t *testing.T) {
	doc := map[string]any{
		"App": map[string]any{
			"name":  "demo",
			"port":  int64(3000),
			"langs": []any{"en", "de"},
		},
	}

	out, err := Encode(FormatTOML, doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[App]")

	back, err := Parse(FormatTOML, "roundtrip", out)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestParse_YAML(t *testing.T) {
	doc, err := Parse(FormatYAML, "inline.yaml", []byte(`
App:
  name: demo
  port: 8080
  ratio: 0.5
  tags: [a, b]
  started: "2024-01-01T00:00:00Z"
`))
	require.NoError(t, err)

	app, ok := doc["App"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demo", app["name"])
	assert.Equal(t, int64(8080), app["port"])
	assert.Equal(t, 0.5, app["ratio"])
	assert.Equal(t, []any{"a", "b"}, app["tags"])
	assert.Equal(t, "2024-01-01T00:00:00Z", app["started"])
}

func TestParse_YAMLRejectsNull(t *testing.T) {
	_, err := Parse(FormatYAML, "null.yaml", []byte("App:\n  name: ~\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "null")
	assert.ErrorIs(t, err, ErrParse)
}

func TestEncode_YAMLDatetimes(t *testing.T) {
	doc := map[string]any{
		"Build": map[string]any{
			"at":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			"day": toml.LocalDate{Year: 2024, Month: 3, Day: 4},
		},
	}
	out, err := Encode(FormatYAML, doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "2024-01-01T00:00:00Z")
	assert.Contains(t, string(out), "2024-03-04")
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"config.toml", FormatTOML},
		{"config.yaml", FormatYAML},
		{"config.YML", FormatYAML},
		{"config", FormatTOML},
		{"config.ini", FormatTOML},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatForPath(tt.path, FormatTOML), tt.path)
	}
	assert.Equal(t, FormatYAML, FormatForPath("noext", FormatYAML))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("json")
	assert.Error(t, err)
	assert.Equal(t, "toml", FormatTOML.String())
}

func TestWriteAtomic_NewFile(t *testing.T) {
	memfs := NewMemFS()
	require.NoError(t, WriteAtomic(memfs, "/etc/app.toml", []byte("a = 1\n"), zerolog.Nop()))

	data, err := memfs.ReadFile("/etc/app.toml")
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", string(data))
	assert.Equal(t, []string{"/etc/app.toml"}, memfs.paths(), "temporary file must not survive")
}

func TestWriteAtomic_RetriesWhenDestinationExists(t *testing.T) {
	memfs := NewMemFS()
	memfs.renameNoReplace = true
	memfs.AddFile("/etc/app.toml", "a = 1\n")

	require.NoError(t, WriteAtomic(memfs, "/etc/app.toml", []byte("a = 2\n"), zerolog.Nop()))

	data, err := memfs.ReadFile("/etc/app.toml")
	require.NoError(t, err)
	assert.Equal(t, "a = 2\n", string(data))
	assert.Equal(t, []string{"/etc/app.toml"}, memfs.removed)
	assert.Equal(t, []string{"/etc/app.toml"}, memfs.paths())
}

func TestWriteAtomic_RenameFailureCleansUp(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/etc/app.toml", "a = 1\n")
	memfs.renameErr = fs.ErrPermission

	err := WriteAtomic(memfs, "/etc/app.toml", []byte("a = 2\n"), zerolog.Nop())
	require.Error(t, err)

	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/etc/app.toml", pe.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)

	data, _ := memfs.ReadFile("/etc/app.toml")
	assert.Equal(t, "a = 1\n", string(data), "original file must be untouched")
	assert.Equal(t, []string{"/etc/app.toml"}, memfs.paths())
}

func TestWriteAtomic_OSFS(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/settings.toml"

	require.NoError(t, WriteAtomic(DefaultFS(), path, []byte("first = true\n"), zerolog.Nop()))
	require.NoError(t, WriteAtomic(DefaultFS(), path, []byte("first = false\n"), zerolog.Nop()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first = false\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTempPath(t *testing.T) {
	a := TempPath("/etc/app.toml")
	b := TempPath("/etc/app.toml")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "/etc/.app.toml."))
	assert.True(t, strings.HasSuffix(a, ".tmp"))
}
