package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource(t *testing.T) {
	t.Setenv("PLATFORM_SOURCE_TEST", "from-env")

	source := EnvSource{}

	value, ok := source.Lookup("PLATFORM_SOURCE_TEST")
	assert.True(t, ok)
	assert.Equal(t, "from-env", value)

	_, ok = source.Lookup("PLATFORM_SOURCE_TEST_MISSING")
	assert.False(t, ok)

	assert.Equal(t, "from-env", source.All()["PLATFORM_SOURCE_TEST"])
}

func TestStaticSource(t *testing.T) {
	source := StaticSource{"KEY": "value"}

	value, ok := source.Lookup("KEY")
	assert.True(t, ok)
	assert.Equal(t, "value", value)

	_, ok = source.Lookup("MISSING")
	assert.False(t, ok)

	// All returns a copy, not the backing map
	all := source.All()
	all["KEY"] = "mutated"
	value, _ = source.Lookup("KEY")
	assert.Equal(t, "value", value)
}

func TestLayered(t *testing.T) {
	layered := Layered{
		StaticSource{"SHARED": "first", "ONLY_FIRST": "a"},
		StaticSource{"SHARED": "second", "ONLY_SECOND": "b"},
	}

	t.Run("first hit wins", func(t *testing.T) {
		value, ok := layered.Lookup("SHARED")
		assert.True(t, ok)
		assert.Equal(t, "first", value)
	})

	t.Run("later sources answer when earlier ones miss", func(t *testing.T) {
		value, ok := layered.Lookup("ONLY_SECOND")
		assert.True(t, ok)
		assert.Equal(t, "b", value)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		_, ok := layered.Lookup("NOWHERE")
		assert.False(t, ok)
	})

	t.Run("all respects precedence", func(t *testing.T) {
		all := layered.All()
		assert.Equal(t, "first", all["SHARED"])
		assert.Equal(t, "a", all["ONLY_FIRST"])
		assert.Equal(t, "b", all["ONLY_SECOND"])
	})
}

func TestNewDotenvSource(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(base, []byte("APP_NAME=family-helper\nAPP_PORT=8080\n"), 0o644))

	local := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(local, []byte("APP_PORT=9090\n"), 0o644))

	t.Run("later files override earlier ones", func(t *testing.T) {
		source, err := NewDotenvSource(base, local)
		require.NoError(t, err)

		name, ok := source.Lookup("APP_NAME")
		assert.True(t, ok)
		assert.Equal(t, "family-helper", name)

		port, ok := source.Lookup("APP_PORT")
		assert.True(t, ok)
		assert.Equal(t, "9090", port)
	})

	t.Run("missing files are skipped", func(t *testing.T) {
		source, err := NewDotenvSource(filepath.Join(dir, ".env.staging"), base)
		require.NoError(t, err)

		name, ok := source.Lookup("APP_NAME")
		assert.True(t, ok)
		assert.Equal(t, "family-helper", name)
	})

	t.Run("no files yields an empty source", func(t *testing.T) {
		source, err := NewDotenvSource(filepath.Join(dir, ".env.nowhere"))
		require.NoError(t, err)

		assert.Empty(t, source.All())
	})
}

func TestEnvironmentConfig_WithLayeredSource(t *testing.T) {
	t.Setenv("LAYERED_TEST_PORT", "7070")

	cfg := New(Layered{
		StaticSource{"LAYERED_TEST_NAME": "override"},
		EnvSource{},
	})

	name, err := cfg.Get("LAYERED_TEST_NAME", false)
	require.NoError(t, err)
	assert.Equal(t, "override", name)

	port, err := cfg.GetInt("LAYERED_TEST_PORT", false)
	require.NoError(t, err)
	assert.Equal(t, 7070, port)
}
