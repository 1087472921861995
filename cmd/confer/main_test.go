package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/confer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const doc = `[App]
host = "localhost"
port = 8080
tags = ["a", "b"]

[Db]
url = "postgres://"
`

func TestGetCommand(t *testing.T) {
	path := writeDoc(t, doc)

	out, err := execute(t, "-f", path, "get", "App", "host")
	require.NoError(t, err)
	assert.Equal(t, "localhost\n", out)

	out, err = execute(t, "-f", path, "get", "App", "port")
	require.NoError(t, err)
	assert.Equal(t, "8080\n", out)

	out, err = execute(t, "-f", path, "get", "App", "tags", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["a", "b"]`, out)

	_, err = execute(t, "-f", path, "get", "App", "missing")
	assert.ErrorIs(t, err, confer.ErrMissingKey)
}

func TestSetCommand(t *testing.T) {
	path := writeDoc(t, doc)

	_, err := execute(t, "-f", path, "set", "App", "port", "9090")
	require.NoError(t, err)
	_, err = execute(t, "-f", path, "set", "App", "name", "--string", "my app")
	require.NoError(t, err)
	_, err = execute(t, "-f", path, "set", "New", "list", "[1, 2]")
	require.NoError(t, err)

	store, err := confer.FromFile(path)
	require.NoError(t, err)

	port, err := store.GetInteger("App", "port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)

	name, err := store.GetString("App", "name")
	require.NoError(t, err)
	assert.Equal(t, "my app", name)

	list, err := store.GetIntegerSlice("New", "list")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, list)

	_, err = execute(t, "-f", path, "set", "App", "bad", "not a literal")
	assert.Error(t, err)
}

func TestSetCommand_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")

	_, err := execute(t, "-f", path, "set", "App", "debug", "true")
	require.NoError(t, err)

	store, err := confer.FromFile(path)
	require.NoError(t, err)
	debug, err := store.GetBoolean("App", "debug")
	require.NoError(t, err)
	assert.True(t, debug)
}

func TestRmCommand(t *testing.T) {
	path := writeDoc(t, doc)

	_, err := execute(t, "-f", path, "rm", "App", "tags")
	require.NoError(t, err)
	_, err = execute(t, "-f", path, "rm", "Db")
	require.NoError(t, err)

	out, err := execute(t, "-f", path, "sections")
	require.NoError(t, err)
	assert.Equal(t, "App\n", out)

	out, err = execute(t, "-f", path, "keys", "App")
	require.NoError(t, err)
	assert.Equal(t, "host\nport\n", out)
}

func TestFmtCommand(t *testing.T) {
	path := writeDoc(t, "[B]\nz = 1\na = 2\n[A]\nk = 'v'\n")

	out, err := execute(t, "-f", path, "fmt")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "[A]"), strings.Index(out, "[B]"))

	_, err = execute(t, "-f", path, "fmt", "--write")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestConvertCommand(t *testing.T) {
	src := writeDoc(t, doc)
	dst := filepath.Join(filepath.Dir(src), "app.yaml")

	_, err := execute(t, "convert", src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port: 8080")

	back, err := confer.FromFile(dst)
	require.NoError(t, err)
	tags, err := back.GetStringSlice("App", "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)
}

func TestRootFlags(t *testing.T) {
	path := writeDoc(t, doc)

	_, err := execute(t, "-f", path, "--log-level", "loud", "sections")
	assert.Error(t, err)

	_, err = execute(t, "-f", path, "--format", "xml", "sections")
	assert.Error(t, err)

	_, err = execute(t, "-f", filepath.Join(t.TempDir(), "missing.toml"), "sections")
	assert.ErrorIs(t, err, confer.ErrIO)

	assert.Equal(t, 1, run([]string{"-f", path, "get", "Nope", "x"}))
	assert.Equal(t, 0, run([]string{"-f", path, "sections"}))
}
