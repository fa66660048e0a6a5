// FILE: lixenwraith/setty/builder.go
package setty

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Builder provides a fluent interface for assembling a Config with the
// conventional precedence: defaults < file < extra sources < environment <
// command line.
type Builder[T any] struct {
	reg          *Registry
	fs           afero.Fs
	defaults     any
	file         string
	fileRequired bool
	envPrefix    string
	envSeparator string
	args         []string
	ignoreFlags  []string
	sources      []Source
	validators   []ValidatorFunc[T]
	logger       *zerolog.Logger
	onDeprecated DeprecationFunc
	setHandler   bool
	strict       bool
	err          error
}

// NewBuilder creates a new configuration builder reading os.Args
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		reg:          defaultRegistry,
		fs:           afero.NewOsFs(),
		envSeparator: DefaultEnvSeparator,
		args:         os.Args[1:],
	}
}

// WithRegistry derives the schema through reg
func (b *Builder[T]) WithRegistry(reg *Registry) *Builder[T] {
	if reg != nil {
		b.reg = reg
	}
	return b
}

// WithFs reads files through fs
func (b *Builder[T]) WithFs(fs afero.Fs) *Builder[T] {
	b.fs = fs
	return b
}

// WithDefaults sets a value whose fields form the lowest-precedence layer
func (b *Builder[T]) WithDefaults(defaults T) *Builder[T] {
	b.defaults = defaults
	return b
}

// WithFile sets the configuration file path. A missing file is not an error.
func (b *Builder[T]) WithFile(path string) *Builder[T] {
	b.file = path
	return b
}

// WithRequiredFile sets a configuration file that must exist
func (b *Builder[T]) WithRequiredFile(path string) *Builder[T] {
	b.file = path
	b.fileRequired = true
	return b
}

// WithEnvPrefix sets the environment variable prefix, e.g. "MYAPP__"
func (b *Builder[T]) WithEnvPrefix(prefix string) *Builder[T] {
	b.envPrefix = prefix
	return b
}

// WithEnvSeparator sets the separator between nested environment keys
func (b *Builder[T]) WithEnvSeparator(sep string) *Builder[T] {
	if sep == "" {
		b.err = errors.New("environment separator cannot be empty")
		return b
	}
	b.envSeparator = sep
	return b
}

// WithArgs sets the command-line arguments
func (b *Builder[T]) WithArgs(args []string) *Builder[T] {
	b.args = args
	return b
}

// WithSources adds sources between the file and the environment
func (b *Builder[T]) WithSources(sources ...Source) *Builder[T] {
	b.sources = append(b.sources, sources...)
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder[T]) WithValidator(fn ValidatorFunc[T]) *Builder[T] {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// WithLogger sets the logger of the built Config
func (b *Builder[T]) WithLogger(logger zerolog.Logger) *Builder[T] {
	b.logger = &logger
	return b
}

// WithDeprecationHandler replaces the default deprecation reporter
func (b *Builder[T]) WithDeprecationHandler(fn DeprecationFunc) *Builder[T] {
	b.onDeprecated = fn
	b.setHandler = true
	return b
}

// WithStrictDeprecation fails the build when deprecated properties are used
func (b *Builder[T]) WithStrictDeprecation() *Builder[T] {
	b.strict = true
	return b
}

// Build creates the Config and verifies that it extracts. The Config is
// returned alongside extraction errors so callers can inspect its sources.
func (b *Builder[T]) Build() (*Config[T], error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg := NewWithRegistry[T](b.reg).WithFs(b.fs)
	if b.logger != nil {
		cfg.WithLogger(*b.logger)
	}
	if b.setHandler {
		cfg.WithDeprecationHandler(b.onDeprecated)
	}
	if b.strict {
		cfg.WithStrictDeprecation()
	}
	for _, v := range b.validators {
		cfg.WithValidator(v)
	}

	if b.defaults != nil {
		cfg.WithSource(Struct(b.defaults))
	}
	if b.file != "" {
		cfg.WithSource(File(b.file).WithFs(b.fs).Required(b.fileRequired))
	}
	cfg.WithSources(b.sources...)
	if b.envPrefix != "" {
		cfg.WithSource(Env(b.envPrefix).WithSeparator(b.envSeparator))
	}
	if len(b.args) > 0 {
		cfg.WithSource(Args(b.args).Ignore(b.ignoreFlags...))
	}

	if _, err := cfg.Extract(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MustBuild is like Build but panics on error
func (b *Builder[T]) MustBuild() *Config[T] {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndExtract builds the Config and returns the extracted value
func (b *Builder[T]) BuildAndExtract() (*T, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return cfg.Extract()
}

// Quick extracts T from an optional config file, prefixed environment
// variables and os.Args with a single call
func Quick[T any](envPrefix, configFile string) (*T, error) {
	return NewBuilder[T]().
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		BuildAndExtract()
}

// MustQuick is like Quick but panics on error
func MustQuick[T any](envPrefix, configFile string) *T {
	cfg, err := Quick[T](envPrefix, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}
