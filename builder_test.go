// FILE: lixenwraith/setty/builder_test.go
package setty

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/app/config.toml", []byte("[server]\nhost = \"file\"\nport = 2\n"), 0644))
	t.Setenv("SETTY_BUILDER_TEST__TOKEN", "env-token")
	t.Setenv("SETTY_BUILDER_TEST__SERVER__PORT", "4")

	newBuilder := func() *Builder[testConfig] {
		return NewBuilder[testConfig]().
			WithRegistry(newTestRegistry(t)).
			WithFs(fs).
			WithDeprecationHandler(nil).
			WithDefaults(testConfig{
				Server: testServer{Host: "defaults", Port: 1},
				Level:  "info",
				Token:  "default-token",
			}).
			WithFile("/etc/app/config.toml").
			WithEnvPrefix("SETTY_BUILDER_TEST__").
			WithArgs([]string{"--verbosity=warn"})
	}

	t.Run("Precedence", func(t *testing.T) {
		cfg, err := newBuilder().Build()
		require.NoError(t, err)

		result, err := cfg.Extract()
		require.NoError(t, err)
		assert.Equal(t, "file", result.Server.Host)
		assert.Equal(t, 4, result.Server.Port)
		assert.Equal(t, "env-token", result.Token)
		assert.Equal(t, testLevel("warn"), result.Level)

		var names []string
		for _, s := range cfg.Sources() {
			names = append(names, s.Name())
		}
		assert.Equal(t, []string{
			"struct:setty.testConfig",
			"file:/etc/app/config.toml",
			"env:SETTY_BUILDER_TEST__",
			"args",
		}, names)
	})

	t.Run("ExtraSourcesBeforeEnv", func(t *testing.T) {
		result, err := newBuilder().
			WithSources(Literal(map[string]any{"token": "literal", "owner": "me"})).
			BuildAndExtract()
		require.NoError(t, err)
		assert.Equal(t, "env-token", result.Token)
	})

	t.Run("Validator", func(t *testing.T) {
		cfg, err := newBuilder().
			WithValidator(func(c *testConfig) error {
				if c.Server.Port < 10 {
					return errors.New("port too low")
				}
				return nil
			}).
			Build()
		assert.ErrorIs(t, err, ErrValidation)
		assert.NotNil(t, cfg)
	})

	t.Run("StrictDeprecation", func(t *testing.T) {
		_, err := newBuilder().
			WithArgs([]string{"--server.retries=2"}).
			WithStrictDeprecation().
			Build()
		assert.ErrorIs(t, err, ErrDeprecated)
	})

	t.Run("RequiredFileMissing", func(t *testing.T) {
		cfg, err := newBuilder().WithRequiredFile("/etc/app/missing.toml").Build()
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.NotNil(t, cfg)
	})

	t.Run("EmptySeparator", func(t *testing.T) {
		cfg, err := newBuilder().WithEnvSeparator("").Build()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder[testConfig]().
				WithRegistry(newTestRegistry(t)).
				WithArgs(nil).
				MustBuild()
		})
	})
}

type quickConfig struct {
	Name string `config:"name" default:"quick"`
	Port int    `config:"port" default:"1"`
}

type quickRequired struct {
	Token string `config:"token"`
}

func TestQuick(t *testing.T) {
	t.Setenv("SETTY_QUICK_TEST__PORT", "7")

	result, err := Quick[quickConfig]("SETTY_QUICK_TEST__", filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "quick", result.Name)
	assert.Equal(t, 7, result.Port)

	assert.Panics(t, func() {
		MustQuick[quickRequired]("SETTY_QUICK_NONE__", "")
	})
}

func TestDiscoverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/opt/b/myapp.yaml", []byte("name: b\n"), 0644))
	require.NoError(t, fs.MkdirAll("/opt/a/myapp.toml", 0755))

	opts := FileDiscoveryOptions{
		Name:       "myapp",
		Extensions: []string{".toml", ".yaml"},
		Paths:      []string{"/opt/a", "/opt/b"},
		EnvVar:     "SETTY_DISCOVERY_TEST_CONFIG",
		CLIFlag:    "--config",
	}

	t.Run("CLIFlag", func(t *testing.T) {
		path, ok := DiscoverFile(fs, []string{"serve", "--config", "/x.toml"}, opts)
		assert.True(t, ok)
		assert.Equal(t, "/x.toml", path)

		path, ok = DiscoverFile(fs, []string{"--config=/y.toml"}, opts)
		assert.True(t, ok)
		assert.Equal(t, "/y.toml", path)
	})

	t.Run("EnvVar", func(t *testing.T) {
		t.Setenv("SETTY_DISCOVERY_TEST_CONFIG", "/env.toml")
		path, ok := DiscoverFile(fs, nil, opts)
		assert.True(t, ok)
		assert.Equal(t, "/env.toml", path)
	})

	t.Run("SearchPaths", func(t *testing.T) {
		// Directories named like the file are skipped
		path, ok := DiscoverFile(fs, nil, opts)
		assert.True(t, ok)
		assert.Equal(t, filepath.Join("/opt/b", "myapp.yaml"), path)
	})

	t.Run("NotFound", func(t *testing.T) {
		opts := opts
		opts.Name = "other"
		_, ok := DiscoverFile(fs, nil, opts)
		assert.False(t, ok)
	})

	t.Run("ExplicitSourceIsRequired", func(t *testing.T) {
		src, ok := Discover(fs, []string{"--config", "/missing.toml"}, opts)
		require.True(t, ok)
		_, _, err := src.Load()
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("SearchedSourceLoads", func(t *testing.T) {
		src, ok := Discover(fs, nil, opts)
		require.True(t, ok)
		value, found, err := src.Load()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, map[string]any{"name": "b"}, value)
	})

	t.Run("SearchDirs", func(t *testing.T) {
		assert.Equal(t, []string{"/opt/a", "/opt/b"}, opts.SearchDirs())
	})

	t.Run("XDG", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		t.Setenv("XDG_CONFIG_DIRS", "/etc/one"+string(filepath.ListSeparator)+"/etc/two")
		assert.Equal(t, []string{
			filepath.Join("/xdg", "app"),
			filepath.Join("/etc/one", "app"),
			filepath.Join("/etc/two", "app"),
		}, getXDGConfigPaths("app"))
	})

	t.Run("Defaults", func(t *testing.T) {
		defaults := DefaultDiscoveryOptions("myapp")
		assert.Equal(t, "MYAPP_CONFIG", defaults.EnvVar)
		assert.Equal(t, "--config", defaults.CLIFlag)
		assert.True(t, defaults.UseXDG)
		assert.True(t, defaults.UseCurrentDir)
	})
}

func TestBuilderFileDiscovery(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/app/custom.toml", []byte("token = \"t\"\n"), 0644))

	cfg, err := NewBuilder[testConfig]().
		WithRegistry(newTestRegistry(t)).
		WithFs(fs).
		WithDeprecationHandler(nil).
		WithArgs([]string{"--config", "/etc/app/custom.toml", "--server.port=5"}).
		WithFileDiscovery(FileDiscoveryOptions{Name: "app", CLIFlag: "--config"}).
		Build()
	require.NoError(t, err)

	result, err := cfg.Extract()
	require.NoError(t, err)
	assert.Equal(t, "t", result.Token)
	assert.Equal(t, 5, result.Server.Port)
}

func TestBuilderFileDiscoveryMissingExplicitFile(t *testing.T) {
	cfg, err := NewBuilder[testConfig]().
		WithRegistry(newTestRegistry(t)).
		WithFs(afero.NewMemMapFs()).
		WithDeprecationHandler(nil).
		WithArgs([]string{"--config=/etc/app/absent.toml", "--token=t"}).
		WithFileDiscovery(FileDiscoveryOptions{Name: "app", CLIFlag: "--config"}).
		Build()
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.NotNil(t, cfg)
}
