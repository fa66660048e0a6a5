// FILE: lixenwraith/setty/config.go
package setty

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ValidatorFunc validates an extracted configuration value.
type ValidatorFunc[T any] func(cfg *T) error

// Config collects configuration sources for the type T and combines them
// using the per-field policies of T's schema. Sources are applied in the order
// they were added, so later sources take precedence.
//
// A Config is safe for concurrent use. Sources are loaded on every call, so
// the result always reflects their current content.
type Config[T any] struct {
	reg          *Registry
	schema       *TypeSchema
	err          error
	sources      []Source
	validators   []ValidatorFunc[T]
	onDeprecated DeprecationFunc
	strict       bool
	checkSchema  bool
	logger       zerolog.Logger
	fs           afero.Fs
	mutex        sync.RWMutex
	watcher      *watcher[T]
}

// New creates a Config for T using the default registry.
func New[T any]() *Config[T] {
	return NewWithRegistry[T](defaultRegistry)
}

// NewWithRegistry creates a Config for T whose schema is derived by reg.
// A schema derivation error is reported by every loading operation.
func NewWithRegistry[T any](reg *Registry) *Config[T] {
	if reg == nil {
		reg = defaultRegistry
	}
	ts, err := SchemaFor[T](reg)
	return &Config[T]{
		reg:          reg,
		schema:       ts,
		err:          err,
		onDeprecated: WriterDeprecationReporter(os.Stderr),
		logger:       zerolog.Nop(),
		fs:           afero.NewOsFs(),
	}
}

// WithSource appends a source with the highest precedence so far.
func (c *Config[T]) WithSource(s Source) *Config[T] {
	if s == nil {
		return c
	}
	if b, ok := s.(registryBinder); ok {
		b.bindRegistry(c.reg)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sources = append(c.sources, s)
	return c
}

// WithSources appends several sources in order.
func (c *Config[T]) WithSources(sources ...Source) *Config[T] {
	for _, s := range sources {
		c.WithSource(s)
	}
	return c
}

// WithDeprecationHandler replaces the default stderr deprecation reporter.
// A nil handler disables reporting.
func (c *Config[T]) WithDeprecationHandler(fn DeprecationFunc) *Config[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onDeprecated = fn
	return c
}

// WithStrictDeprecation makes Extract fail with ErrDeprecated when any
// deprecated property is used. Reports are still delivered to the handler.
func (c *Config[T]) WithStrictDeprecation() *Config[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.strict = true
	return c
}

// WithJSONSchemaValidation validates the combined data against the exported
// JSON Schema before decoding.
func (c *Config[T]) WithJSONSchemaValidation() *Config[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.checkSchema = true
	return c
}

// WithValidator adds a validation function that runs after decoding.
// Multiple validators are executed in the order they are added.
func (c *Config[T]) WithValidator(fn ValidatorFunc[T]) *Config[T] {
	if fn == nil {
		return c
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.validators = append(c.validators, fn)
	return c
}

// WithLogger logs source loading at debug level.
func (c *Config[T]) WithLogger(logger zerolog.Logger) *Config[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.logger = logger
	return c
}

// WithFs sets the filesystem used by SetValue, UnsetValue and file watching.
func (c *Config[T]) WithFs(fs afero.Fs) *Config[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.fs = fs
	return c
}

// Schema returns the schema of T, or nil when it could not be derived.
func (c *Config[T]) Schema() *TypeSchema {
	return c.schema
}

// Err returns the error that prevented deriving the schema of T, if any.
func (c *Config[T]) Err() error {
	return c.err
}

// Sources returns the configured sources in precedence order.
func (c *Config[T]) Sources() []Source {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]Source(nil), c.sources...)
}

// Extract combines all sources, reports deprecated properties, fills defaults
// and decodes the result into T, then runs validators.
func (c *Config[T]) Extract() (*T, error) {
	if c.err != nil {
		return nil, c.err
	}

	value, err := c.combined(nil)
	if err != nil {
		return nil, err
	}

	if err := c.reportDeprecated(value); err != nil {
		return nil, err
	}

	return c.decode(FillDefaults(value, c.schema))
}

// reportDeprecated delivers every deprecated use to the handler. In strict mode
// any use is an error.
func (c *Config[T]) reportDeprecated(value any) error {
	c.mutex.RLock()
	handler, strict, logger := c.onDeprecated, c.strict, c.logger
	c.mutex.RUnlock()

	var uses []DeprecatedUse
	ScanDeprecated(value, c.schema, func(path []string, reason, since string) {
		if handler != nil {
			handler(path, reason, since)
		}
		uses = append(uses, DeprecatedUse{Path: strings.Join(path, "."), Reason: reason, Since: since})
	})

	if len(uses) > 0 {
		logger.Debug().Int("count", len(uses)).Msg("deprecated properties in use")
	}
	if strict && len(uses) > 0 {
		errs := make([]error, 0, len(uses))
		for _, use := range uses {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDeprecated, use.Path))
		}
		return errors.Join(errs...)
	}
	return nil
}

// decode checks and decodes a defaults-filled value, then runs validators.
func (c *Config[T]) decode(value any) (*T, error) {
	canonical, err := c.schema.Check(value)
	if err != nil {
		return nil, err
	}

	c.mutex.RLock()
	checkSchema := c.checkSchema
	validators := append([]ValidatorFunc[T](nil), c.validators...)
	c.mutex.RUnlock()

	if checkSchema {
		if err := ValidateJSONSchema(c.schema, canonical); err != nil {
			return nil, &ValidationError{Err: err}
		}
	}

	out := new(T)
	if canonical != nil {
		if err := c.reg.mapDecode(canonical, out); err != nil {
			return nil, &DecodeError{Reason: "type mismatch", Err: err}
		}
	}

	for _, validator := range validators {
		if err := validator(out); err != nil {
			return nil, &ValidationError{Err: err}
		}
	}

	return out, nil
}

// Data returns the combined value of all sources, optionally with defaults
// filled in.
func (c *Config[T]) Data(withDefaults bool) (any, error) {
	if c.err != nil {
		return nil, c.err
	}

	value, err := c.combined(nil)
	if err != nil {
		return nil, err
	}
	if withDefaults {
		value = FillDefaults(value, c.schema)
	}
	return value, nil
}

// GetValue returns the value at a dotted path of the combined data.
// A missing path is not an error.
func (c *Config[T]) GetValue(path string, withDefaults bool) (any, bool, error) {
	data, err := c.Data(withDefaults)
	if err != nil {
		return nil, false, err
	}
	value, found := GetPath(data, path)
	return value, found, nil
}

// SetValue stores value at path in file. The change is first combined with all
// sources and decoded into T; nothing is written when that fails. The file is
// then read, merged with the change using T's policies and replaced
// atomically. A nil format is detected from the file extension.
func (c *Config[T]) SetValue(path string, value any, file string, format Format) error {
	if c.err != nil {
		return c.err
	}
	if err := ValidatePath(path); err != nil {
		return err
	}
	format, err := formatFor(file, format)
	if err != nil {
		return err
	}

	encoded, err := c.reg.Encode(value)
	if err != nil {
		return fmt.Errorf("refusing to set %q: %w", path, err)
	}
	nested := NestPath(path, encoded)

	combined, err := c.combined(nested)
	if err != nil {
		return err
	}
	if _, err := c.decode(FillDefaults(combined, c.schema)); err != nil {
		return fmt.Errorf("refusing to set %q: %w", path, err)
	}

	c.mutex.RLock()
	fs, logger := c.fs, c.logger
	c.mutex.RUnlock()

	doc, err := readDocument(fs, file, format)
	if err != nil {
		return err
	}
	merged := c.schema.Merge(doc, nested)

	if err := writeDocument(fs, file, format, merged); err != nil {
		return err
	}
	logger.Debug().Str("path", path).Str("file", file).Msg("configuration value set")
	return nil
}

// UnsetValue removes path from file and returns the previous value. A missing
// file or path leaves the file untouched.
func (c *Config[T]) UnsetValue(path string, file string, format Format) (any, bool, error) {
	if err := ValidatePath(path); err != nil {
		return nil, false, err
	}
	format, err := formatFor(file, format)
	if err != nil {
		return nil, false, err
	}

	c.mutex.RLock()
	fs, logger := c.fs, c.logger
	c.mutex.RUnlock()

	if exists, err := afero.Exists(fs, file); err != nil {
		return nil, false, ioError("stat config file", file, err)
	} else if !exists {
		return nil, false, nil
	}

	doc, err := readDocument(fs, file, format)
	if err != nil {
		return nil, false, err
	}

	prev, found := UnsetPath(doc, path)
	if !found {
		return nil, false, nil
	}

	if err := writeDocument(fs, file, format, doc); err != nil {
		return nil, false, err
	}
	logger.Debug().Str("path", path).Str("file", file).Msg("configuration value unset")
	return prev, true, nil
}

// CompletePaths returns every property path of T starting with prefix.
func (c *Config[T]) CompletePaths(prefix string) []string {
	return CompletePaths(c.schema, prefix)
}

// JSONSchema returns the JSON Schema document describing T.
func (c *Config[T]) JSONSchema() map[string]any {
	return JSONSchema(c.schema)
}

// Markdown returns documentation of T's properties.
func (c *Config[T]) Markdown() string {
	return Markdown(c.schema)
}

// combined loads every source in order and folds them with the schema. extra,
// when not nil, is applied last. No source at all yields an empty mapping.
func (c *Config[T]) combined(extra any) (any, error) {
	c.mutex.RLock()
	sources := append([]Source(nil), c.sources...)
	logger := c.logger
	c.mutex.RUnlock()

	values, err := loadSources(sources, logger)
	if err != nil {
		return nil, err
	}
	if extra != nil {
		values = append(values, extra)
	}
	if len(values) == 0 {
		return map[string]any{}, nil
	}
	return Combine(c.schema, values...), nil
}

// loadSources loads sources in order, expanding globs and skipping absent ones.
func loadSources(sources []Source, logger zerolog.Logger) ([]any, error) {
	var values []any
	for _, s := range sources {
		if exp, ok := s.(expander); ok {
			expanded, err := exp.Expand()
			if err != nil {
				return nil, err
			}
			logger.Debug().Str("source", s.Name()).Int("matches", len(expanded)).Msg("expanded source")
			nested, err := loadSources(expanded, logger)
			if err != nil {
				return nil, err
			}
			values = append(values, nested...)
			continue
		}

		value, ok, err := s.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", s.Name(), err)
		}
		if !ok {
			logger.Debug().Str("source", s.Name()).Msg("source absent")
			continue
		}
		logger.Debug().Str("source", s.Name()).Msg("source loaded")
		values = append(values, value)
	}
	return values, nil
}

// formatFor falls back to the format implied by the file extension.
func formatFor(file string, format Format) (Format, error) {
	if format != nil {
		return format, nil
	}
	if f := FormatForPath(file); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("unable to determine config format for file '%s'", file)
}
