// FILE: lixenwraith/setty/doc.go

// Package setty provides layered configuration for Go applications driven by
// a schema derived from the target struct: values from files (TOML, YAML,
// JSON), environment variables, .env files, command-line arguments and
// in-memory literals are combined per-field, completed with declared
// defaults, checked and decoded.
//
// Features:
//   - Per-field combine policies: keep, replace and merge (arrays append, maps
//     and objects merge recursively, unions merge only within the same variant)
//   - Tagged unions registered for interface types
//   - Declared defaults, including nested struct defaults
//   - Dotted path get/set/unset with write-back to a configuration file
//   - Path completion for CLIs
//   - Deprecation warnings, optionally fatal
//   - JSON Schema export and validation, Markdown documentation
//   - Polling file watcher with change notifications
//
// Quick Start:
//
//	type Config struct {
//	    Server struct {
//	        Host string `config:"host" default:"localhost"`
//	        Port int    `config:"port" default:"8080"`
//	    } `config:"server"`
//	    Plugins []string `config:"plugins"`
//	}
//
//	cfg, err := setty.Quick[Config]("MYAPP__", "config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Default Precedence (highest to lowest):
//  1. Command-line arguments (--server.port=9090)
//  2. Environment variables (MYAPP__SERVER__PORT=9090)
//  3. Configuration file (config.toml)
//  4. Default values
//
// Custom Precedence:
//
//	cfg := setty.New[Config]().
//	    WithSource(setty.File("/etc/myapp.yaml")).
//	    WithSource(setty.Glob("/etc/myapp.d/*.yaml")).
//	    WithSource(setty.Env("MYAPP__"))
//	value, err := cfg.Extract()
//
// Struct tags:
//
//	config:"name,combine=keep|replace|merge,alias=a|b,required,optional"
//	default:"<yaml literal>"
//	deprecated:"reason" since:"version"
//	description:"text"
//
// Thread Safety:
// Config, Registry and TypeSchema are safe for concurrent use.
package setty
