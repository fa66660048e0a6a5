// FILE: lixenwraith/setty/accessor.go
package setty

import (
	"fmt"
	"strconv"
	"time"
)

// lookup returns the defaults-filled value at path.
func (c *Config[T]) lookup(path string) (any, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	val, found, err := c.GetValue(path, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: no value at %s", ErrInvalidPath, path)
	}
	return val, nil
}

// String retrieves a string configuration value using the path.
// Scalars of other kinds are rendered as they would appear in a file.
func (c *Config[T]) String(path string) (string, error) {
	val, err := c.lookup(path)
	if err != nil {
		return "", err
	}

	switch v := val.(type) {
	case nil:
		return "", nil // Treat nil as empty string for convenience
	case string:
		return v, nil
	case bool, int64, float64:
		return scalarString(v), nil
	default:
		return "", fmt.Errorf("cannot convert %s to string for path %s", KindOf(val), path)
	}
}

// Int64 retrieves an int64 configuration value using the path.
// Attempts conversion from floats, parsable strings, and booleans.
func (c *Config[T]) Int64(path string) (int64, error) {
	val, err := c.lookup(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("value for path %s is nil, cannot convert to int64", path)
	case int64:
		return v, nil
	case float64:
		// Truncate float to int
		return int64(v), nil
	case string:
		// Base 0 for auto-detection (e.g., "0xFF")
		i, err := strconv.ParseInt(v, 0, 64)
		if err == nil {
			return i, nil
		}
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("cannot convert string %q to int64 for path %s: %w", v, path, err)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("cannot convert %s to int64 for path %s", KindOf(val), path)
}

// Bool retrieves a boolean configuration value using the path.
// Attempts conversion from numbers (0=false, non-zero=true) and parsable strings.
func (c *Config[T]) Bool(path string) (bool, error) {
	val, err := c.lookup(path)
	if err != nil {
		return false, err
	}

	switch v := val.(type) {
	case nil:
		return false, fmt.Errorf("value for path %s is nil, cannot convert to bool", path)
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot convert string %q to bool for path %s: %w", v, path, err)
		}
		return b, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	}

	return false, fmt.Errorf("cannot convert %s to bool for path %s", KindOf(val), path)
}

// Float64 retrieves a float64 configuration value using the path.
// Attempts conversion from integers, parsable strings, and booleans.
func (c *Config[T]) Float64(path string) (float64, error) {
	val, err := c.lookup(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("value for path %s is nil, cannot convert to float64", path)
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to float64 for path %s: %w", v, path, err)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("cannot convert %s to float64 for path %s", KindOf(val), path)
}

// Duration retrieves a duration written as "1m30s". Bare integers are seconds.
func (c *Config[T]) Duration(path string) (time.Duration, error) {
	val, err := c.lookup(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to duration for path %s: %w", v, path, err)
		}
		return d, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	}

	return 0, fmt.Errorf("cannot convert %s to duration for path %s", KindOf(val), path)
}
