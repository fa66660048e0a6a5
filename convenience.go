// FILE: lixenwraith/setty/convenience.go
package setty

import (
	"fmt"
	"io"
	"strings"
)

// Validate checks that every listed path holds a non-null value once sources
// are combined and defaults applied
func (c *Config[T]) Validate(required ...string) error {
	data, err := c.Data(true)
	if err != nil {
		return err
	}

	var missing []string
	for _, path := range required {
		if err := ValidatePath(path); err != nil {
			missing = append(missing, path+" (invalid path)")
			continue
		}
		if value, found := GetPath(data, path); !found || value == nil {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Debug returns a formatted string showing the contribution of every source
// and the combined result
func (c *Config[T]) Debug() string {
	c.mutex.RLock()
	sources := append([]Source(nil), c.sources...)
	logger := c.logger
	c.mutex.RUnlock()

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	if c.err != nil {
		b.WriteString(fmt.Sprintf("Schema error: %v\n", c.err))
		return b.String()
	}

	b.WriteString("Sources (lowest to highest precedence):\n")
	for _, s := range sources {
		values, err := loadSources([]Source{s}, logger)
		switch {
		case err != nil:
			b.WriteString(fmt.Sprintf("  %s: error: %v\n", s.Name(), err))
			continue
		case len(values) == 0:
			b.WriteString(fmt.Sprintf("  %s: absent\n", s.Name()))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s:\n", s.Name()))
		for _, v := range values {
			writeFlat(&b, v, "    ")
		}
	}

	b.WriteString("Current values:\n")
	data, err := c.Data(true)
	if err != nil {
		b.WriteString(fmt.Sprintf("  error: %v\n", err))
		return b.String()
	}
	writeFlat(&b, data, "  ")

	return b.String()
}

func writeFlat(b *strings.Builder, v any, indent string) {
	m, ok := v.(map[string]any)
	if !ok {
		b.WriteString(fmt.Sprintf("%s%v\n", indent, v))
		return
	}
	flat := flattenMap(m, "")
	for _, path := range sortedKeys(flat) {
		b.WriteString(fmt.Sprintf("%s%s = %v\n", indent, path, flat[path]))
	}
}

// Dump writes the combined configuration to w in the given format
func (c *Config[T]) Dump(w io.Writer, format Format, withDefaults bool) error {
	if format == nil {
		format = TOML
	}
	data, err := c.Data(withDefaults)
	if err != nil {
		return err
	}
	out, err := format.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration as %s: %w", format.Name(), err)
	}
	_, err = w.Write(out)
	return err
}

// Clone creates a Config sharing the sources, validators and settings of c.
// The clone does not inherit an active watcher.
func (c *Config[T]) Clone() *Config[T] {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return &Config[T]{
		reg:          c.reg,
		schema:       c.schema,
		err:          c.err,
		sources:      append([]Source(nil), c.sources...),
		validators:   append([]ValidatorFunc[T](nil), c.validators...),
		onDeprecated: c.onDeprecated,
		strict:       c.strict,
		checkSchema:  c.checkSchema,
		logger:       c.logger,
		fs:           c.fs,
	}
}
