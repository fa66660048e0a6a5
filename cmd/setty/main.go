// FILE: lixenwraith/setty/cmd/setty/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/lixenwraith/setty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// LogLevel is an enumeration accepted case-insensitively
type LogLevel string

func (LogLevel) EnumValues() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Database is a union selected by the "kind" field
type Database interface {
	isDatabase()
}

type PostgresDatabase struct {
	Host     string `config:"host" default:"localhost"`
	Port     int    `config:"port" default:"5432"`
	User     string `config:"user" description:"Login role"`
	Password string `config:"password,optional"`
}

type SqliteDatabase struct {
	Path string `config:"path" default:"app.db"`
}

func (PostgresDatabase) isDatabase() {}
func (SqliteDatabase) isDatabase()   {}

type ServerConfig struct {
	Host        string        `config:"host" default:"0.0.0.0"`
	Port        int           `config:"port" default:"8080" description:"Listen port"`
	ReadTimeout time.Duration `config:"read_timeout" default:"30s"`
	Timeout     int           `config:"timeout,optional" deprecated:"use read_timeout" since:"0.2.0"`
}

// AppConfig is the configuration managed by this tool
type AppConfig struct {
	Server   ServerConfig      `config:"server" description:"HTTP listener"`
	Database Database          `config:"database,optional" description:"Storage backend"`
	LogLevel LogLevel          `config:"log_level,alias=level|verbosity" default:"info"`
	Plugins  []string          `config:"plugins,combine=merge" description:"Plugins are accumulated across sources"`
	Labels   map[string]string `config:"labels"`
}

var (
	configFile string
	envPrefix  string
	formatName string
	logLevel   string
	noDefaults bool
	strict     bool
)

var rootCmd = &cobra.Command{
	Use:   "setty",
	Short: "Inspect and edit layered configuration",
	Long: `setty combines a configuration file, environment variables and defaults
using per-field policies and lets you read or modify individual values.

Examples:
  setty get server.port
  setty set database '{kind: postgres, user: app}'
  setty unset server.timeout
  setty complete serv`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "setty.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "SETTY__", "Environment variable prefix")
	rootCmd.PersistentFlags().StringVar(&formatName, "format", "yaml", "Output format (toml|yaml|json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	getCmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "Show only explicitly configured values")
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Fail when deprecated properties are used")

	rootCmd.AddCommand(getCmd, setCmd, unsetCmd, completeCmd, schemaCmd, markdownCmd, checkCmd, debugCmd)
}

var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Print the combined configuration or the value at path",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cfg.CompletePaths(toComplete), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := setty.FormatByName(formatName)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			data, err := cfg.Data(!noDefaults)
			if err != nil {
				return err
			}
			return printValue(format, data)
		}

		path := args[0]
		value, found, err := cfg.GetValue(path, !noDefaults)
		if err != nil {
			return err
		}
		if !found {
			if closest := closestPath(path, cfg.CompletePaths("")); closest != "" && closest != path {
				return fmt.Errorf("no value at %q (did you mean %q?)", path, closest)
			}
			return fmt.Errorf("no value at %q", path)
		}
		return printValue(format, value)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Store a value in the configuration file",
	Long: `Store a value in the configuration file. The value is parsed as YAML,
so numbers, booleans, lists and mappings are accepted. The change is rejected
when the resulting configuration is invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		value, err := setty.YAML.Unmarshal([]byte(args[1]))
		if err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
		return cfg.SetValue(args[0], value, configFile, nil)
	},
}

var unsetCmd = &cobra.Command{
	Use:   "unset <path>",
	Short: "Remove a value from the configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		prev, found, err := cfg.UnsetValue(args[0], configFile, nil)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%q is not set in %s", args[0], configFile)
		}
		format, err := setty.FormatByName(formatName)
		if err != nil {
			return err
		}
		return printValue(format, prev)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete [prefix]",
	Short: "List property paths starting with prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		for _, path := range cfg.CompletePaths(prefix) {
			fmt.Println(path)
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(cfg.JSONSchema(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var markdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "Print Markdown documentation of the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Print(cfg.Markdown())
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the combined configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if strict {
			cfg.WithStrictDeprecation()
		}
		if _, err := cfg.Extract(); err != nil {
			return err
		}
		fmt.Println("configuration is valid")
		return nil
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show the contribution of every source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Print(cfg.Debug())
		return nil
	},
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig() (*setty.Config[AppConfig], error) {
	logger := newLogger()
	cfg := setty.New[AppConfig]().
		WithLogger(logger).
		WithDeprecationHandler(setty.LogDeprecationReporter(logger)).
		WithSource(setty.File(configFile)).
		WithSource(setty.Env(envPrefix))
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printValue(format setty.Format, value any) error {
	// TOML documents must be tables
	if _, isMap := value.(map[string]any); !isMap && format == setty.TOML {
		format = setty.JSON
	}
	out, err := format.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	if len(out) > 0 && out[len(out)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func main() {
	setty.MustRegisterUnion[Database](setty.DefaultRegistry(), "kind",
		setty.VariantType[PostgresDatabase]("postgres", "pg", "postgresql"),
		setty.VariantType[SqliteDatabase]("sqlite"),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// closestPath returns the known path nearest to path, or "" when none is close.
func closestPath(path string, known []string) string {
	best, bestDist := "", len(path)/2+1
	for _, candidate := range known {
		if d := levenshtein.ComputeDistance(path, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
