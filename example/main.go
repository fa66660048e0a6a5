// FILE: lixenwraith/setty/example/main.go
package main

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/lixenwraith/setty"
)

// AppConfig defines a configuration structure showcasing combine policies.
type AppConfig struct {
	Server struct {
		Host     string `config:"host" default:"localhost"`
		Port     int64  `config:"port" default:"8080"`
		LogLevel string `config:"log_level,alias=level|verbosity" default:"info"`
	} `config:"server"`
	// Each source adds its own plugins
	Plugins []string `config:"plugins,combine=merge"`
	// The first source to name an owner wins
	Owner        string          `config:"owner,combine=keep,optional"`
	FeatureFlags map[string]bool `config:"feature_flags"`
}

const (
	baseFile     = "base.yaml"
	overrideFile = "override.toml"
)

func main() {
	// =========================================================================
	// PART 1: INITIAL SETUP
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Creating configuration files...")

	defer func() {
		log.Println("---")
		log.Println("🧹 Cleaning up...")
		os.Remove(baseFile)
		os.Remove(overrideFile)
		os.Unsetenv("APP__SERVER__PORT")
	}()

	must(os.WriteFile(baseFile, []byte(`
owner: platform
plugins: [auth]
feature_flags:
  enable_metrics: true
`), 0644))
	must(os.WriteFile(overrideFile, []byte(`
owner = "someone-else"
plugins = ["cache"]

[server]
level = "debug"

[feature_flags]
enable_tracing = true
`), 0644))

	// =========================================================================
	// PART 2: COMBINING SOURCES
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Combining file, override and environment...")

	os.Setenv("APP__SERVER__PORT", "8888")

	cfg := setty.New[AppConfig]().
		WithSource(setty.File(baseFile)).
		WithSource(setty.File(overrideFile)).
		WithSource(setty.Env("APP__")).
		WithValidator(func(c *AppConfig) error {
			if c.Server.Port < 1024 {
				return errors.New("port must be unprivileged")
			}
			return nil
		})

	app, err := cfg.Extract()
	if err != nil {
		log.Fatalf("❌ Extract failed: %v", err)
	}
	log.Printf("   Server: %s:%d (log level %s)", app.Server.Host, app.Server.Port, app.Server.LogLevel)
	log.Printf("   Plugins (merged): %v", app.Plugins)
	log.Printf("   Owner (kept): %s", app.Owner)
	log.Printf("   Feature flags (merged): %v", app.FeatureFlags)

	// =========================================================================
	// PART 3: EDITING A SINGLE VALUE
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Setting and unsetting values in the override file...")

	if err := cfg.SetValue("server.port", "not-a-port", overrideFile, nil); err != nil {
		log.Printf("   ✅ Invalid value rejected: %v", err)
	}
	must(cfg.SetValue("plugins", []string{"audit"}, overrideFile, nil))
	prev, found, err := cfg.UnsetValue("owner", overrideFile, nil)
	must(err)
	log.Printf("   Removed owner=%v (found=%t)", prev, found)

	plugins, _, err := cfg.GetValue("plugins", true)
	must(err)
	log.Printf("   Plugins now: %v", plugins)

	// =========================================================================
	// PART 4: WATCHING FOR CHANGES
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 4: Watching files...")

	opts := setty.DefaultWatchOptions()
	opts.PollInterval = 100 * time.Millisecond
	opts.Debounce = 50 * time.Millisecond
	changes := cfg.Watch(opts)
	defer cfg.StopWatching()

	time.Sleep(200 * time.Millisecond)
	must(cfg.SetValue("server.host", "0.0.0.0", baseFile, nil))

	select {
	case change := <-changes:
		log.Printf("   📝 %s in %s: %v", change.Kind, change.File, change.Paths)
		if change.Value != nil {
			log.Printf("   New host: %s", change.Value.Server.Host)
		}
	case <-time.After(2 * time.Second):
		log.Println("   ⚠️  No change observed")
	}
}

func must(err error) {
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}
