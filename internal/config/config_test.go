package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daisy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
locale: zh-CN
store:
  path: /tmp/scripts.db
cards:
  dirs: [./cards, ./more]
  strict: true
log:
  level: debug
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "zh-CN", c.Locale)
	assert.Equal(t, "/tmp/scripts.db", c.Store.Path)
	assert.Equal(t, []string{"./cards", "./more"}, c.Cards.Dirs)
	assert.True(t, c.Cards.Strict)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "human", c.Log.Format, "unset keys keep their default")
	assert.Equal(t, "text", c.Output.Format)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DAISY_LOCALE", "en")
	t.Setenv("DAISY_STORE_PATH", "/var/daisy.db")
	t.Setenv("DAISY_OUTPUT_FORMAT", "json")

	c, err := Load(writeFile(t, "locale: zh-CN\n"))
	require.NoError(t, err)
	assert.Equal(t, "en", c.Locale)
	assert.Equal(t, "/var/daisy.db", c.Store.Path)
	assert.Equal(t, "json", c.Output.Format)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Locale, c.Locale)
	assert.Equal(t, d.Log, c.Log)
	assert.Equal(t, d.Store.Path, c.Store.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")

	_, err = Load(writeFile(t, "output:\n  format: xml\n"))
	assert.ErrorContains(t, err, "invalid output format")

	_, err = Load(writeFile(t, "locale: \"!!\"\n"))
	assert.ErrorContains(t, err, "invalid locale")
}
