// FILE: lixenwraith/setty/source.go
package setty

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// Source supplies one layer of configuration. Load returns false when the
// source is absent, which is different from supplying an empty or null value.
type Source interface {
	Name() string
	Load() (any, bool, error)
}

// expander is implemented by sources that stand for an ordered list of sources.
type expander interface {
	Expand() ([]Source, error)
}

// registryBinder is implemented by sources that encode Go values and need the
// registry of the Config they are added to.
type registryBinder interface {
	bindRegistry(reg *Registry)
}

// FileSource reads a configuration file. The format is taken from the file
// extension, then from the content, unless set explicitly.
type FileSource struct {
	fs          afero.Fs
	path        string
	format      Format
	required    bool
	maxFileSize int64
}

// File creates an optional file source on the OS filesystem.
func File(path string) *FileSource {
	return &FileSource{fs: afero.NewOsFs(), path: path}
}

// WithFs reads from fs instead of the OS filesystem.
func (s *FileSource) WithFs(fs afero.Fs) *FileSource {
	s.fs = fs
	return s
}

// WithFormat forces the file format.
func (s *FileSource) WithFormat(f Format) *FileSource {
	s.format = f
	return s
}

// Required makes a missing file an ErrConfigNotFound failure.
func (s *FileSource) Required(required bool) *FileSource {
	s.required = required
	return s
}

// WithMaxSize rejects files larger than n bytes. Zero disables the check.
func (s *FileSource) WithMaxSize(n int64) *FileSource {
	s.maxFileSize = n
	return s
}

// Path returns the file path
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Load() (any, bool, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.required {
				return nil, false, fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
			}
			return nil, false, nil
		}
		return nil, false, ioError("stat config file", s.path, err)
	}
	if info.IsDir() {
		return nil, false, ioError("read config file", s.path, errors.New("is a directory"))
	}

	// Security: File size check
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, false, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", s.path, s.maxFileSize)
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, false, ioError("read config file", s.path, err)
	}

	format := s.format
	if format == nil {
		format = FormatForPath(s.path)
	}
	if format == nil {
		format = DetectFormat(data)
	}
	if format == nil {
		return nil, false, fmt.Errorf("unable to determine config format for file '%s'", s.path)
	}

	value, err := format.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse %s config file '%s': %w", strings.ToUpper(format.Name()), s.path, err)
	}
	if value == nil {
		// Comment-only documents are empty, not a reset
		value = map[string]any{}
	}
	return value, true, nil
}

// RawSource parses an in-memory document.
type RawSource struct {
	format Format
	text   string
}

// Raw creates a source from text in the given format.
func Raw(format Format, text string) *RawSource {
	return &RawSource{format: format, text: text}
}

func (s *RawSource) Name() string { return "raw:" + s.format.Name() }

func (s *RawSource) Load() (any, bool, error) {
	value, err := s.format.Unmarshal([]byte(s.text))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse raw %s: %w", s.format.Name(), err)
	}
	if value == nil {
		value = map[string]any{}
	}
	return value, true, nil
}

// LiteralSource supplies a value directly. Go structs anywhere in the value
// are encoded with the field names of their schema, as Struct does.
type LiteralSource struct {
	reg   *Registry
	value any
}

// Literal creates a source from a value. Every Load encodes a fresh copy.
func Literal(v any) *LiteralSource {
	return &LiteralSource{value: v}
}

func (s *LiteralSource) bindRegistry(reg *Registry) {
	if s.reg == nil {
		s.reg = reg
	}
}

func (s *LiteralSource) Name() string { return "literal" }

func (s *LiteralSource) Load() (any, bool, error) {
	reg := s.reg
	if reg == nil {
		reg = defaultRegistry
	}
	value, err := reg.Encode(s.value)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode literal: %w", err)
	}
	return value, true, nil
}

// StructSource encodes a Go value with the field names of its schema.
type StructSource struct {
	reg   *Registry
	value any
}

// Struct creates a source from a Go value, typically a struct of defaults.
func Struct(v any) *StructSource {
	return &StructSource{value: v}
}

func (s *StructSource) bindRegistry(reg *Registry) {
	if s.reg == nil {
		s.reg = reg
	}
}

func (s *StructSource) Name() string { return fmt.Sprintf("struct:%T", s.value) }

func (s *StructSource) Load() (any, bool, error) {
	reg := s.reg
	if reg == nil {
		reg = defaultRegistry
	}
	value, err := reg.Encode(s.value)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode %T: %w", s.value, err)
	}
	return value, true, nil
}

// DefaultEnvSeparator splits environment variable names into nested keys.
const DefaultEnvSeparator = "__"

// EnvSource reads prefixed environment variables. The prefix is stripped, the
// remainder is lower-cased and split on the separator into nested keys, and
// every value is parsed with the format, falling back to the plain string.
// Absent when no variable carries the prefix.
type EnvSource struct {
	prefix    string
	separator string
	format    Format
	environ   func() []string
}

// Env creates an environment source for variables starting with prefix.
func Env(prefix string) *EnvSource {
	return &EnvSource{
		prefix:    prefix,
		separator: DefaultEnvSeparator,
		format:    YAML,
		environ:   os.Environ,
	}
}

// WithSeparator changes the nesting separator.
func (s *EnvSource) WithSeparator(sep string) *EnvSource {
	s.separator = sep
	return s
}

// WithFormat changes how values are parsed.
func (s *EnvSource) WithFormat(f Format) *EnvSource {
	s.format = f
	return s
}

// WithEnviron replaces os.Environ as the variable list.
func (s *EnvSource) WithEnviron(environ func() []string) *EnvSource {
	s.environ = environ
	return s
}

func (s *EnvSource) Name() string { return "env:" + s.prefix }

func (s *EnvSource) Load() (any, bool, error) {
	vars := make(map[string]string)
	for _, kv := range s.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			vars[key] = value
		}
	}
	return decodeVars(vars, s.prefix, s.separator, s.format)
}

// DotEnvSource reads variables from a .env file and treats them like EnvSource.
type DotEnvSource struct {
	fs        afero.Fs
	path      string
	prefix    string
	separator string
	format    Format
}

// DotEnv creates a source for the prefixed variables of a .env file.
func DotEnv(path, prefix string) *DotEnvSource {
	return &DotEnvSource{
		fs:        afero.NewOsFs(),
		path:      path,
		prefix:    prefix,
		separator: DefaultEnvSeparator,
		format:    YAML,
	}
}

// WithFs reads from fs instead of the OS filesystem.
func (s *DotEnvSource) WithFs(fs afero.Fs) *DotEnvSource {
	s.fs = fs
	return s
}

// WithSeparator changes the nesting separator.
func (s *DotEnvSource) WithSeparator(sep string) *DotEnvSource {
	s.separator = sep
	return s
}

func (s *DotEnvSource) Name() string { return "dotenv:" + s.path }

func (s *DotEnvSource) Load() (any, bool, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, ioError("open env file", s.path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse env file '%s': %w", s.path, err)
	}
	return decodeVars(vars, s.prefix, s.separator, s.format)
}

// decodeVars nests prefixed variables. Variables are applied in sorted order so
// a shorter key is overwritten by a longer one sharing its prefix.
func decodeVars(vars map[string]string, prefix, separator string, format Format) (any, bool, error) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)

	result := make(map[string]any)
	for _, key := range keys {
		raw := vars[key]
		if len(raw) > MaxValueSize {
			return nil, false, fmt.Errorf("%w: %s", ErrValueSize, key)
		}

		segments := strings.Split(strings.ToLower(strings.TrimPrefix(key, prefix)), separator)
		valid := true
		for _, segment := range segments {
			if !isValidKeySegment(segment) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		setNestedValue(result, strings.Join(segments, "."), parseScalar(raw, format))
	}

	if len(result) == 0 {
		return nil, false, nil
	}
	return result, true, nil
}

// parseScalar parses a single value with format, keeping the raw text when it
// does not parse. Empty text stays an empty string.
func parseScalar(raw string, format Format) any {
	if raw == "" || format == nil {
		return raw
	}
	value, err := format.Unmarshal([]byte(raw))
	if err != nil || value == nil {
		return raw
	}
	return value
}

// GlobSource expands a doublestar pattern into file sources applied in
// lexical order.
type GlobSource struct {
	fs      afero.Fs
	pattern string
	format  Format
}

// Glob creates a source for every file matching pattern, e.g. "conf.d/**/*.yaml".
func Glob(pattern string) *GlobSource {
	return &GlobSource{fs: afero.NewOsFs(), pattern: pattern}
}

// WithFs reads from fs instead of the OS filesystem.
func (s *GlobSource) WithFs(fs afero.Fs) *GlobSource {
	s.fs = fs
	return s
}

// WithFormat forces the format of every matched file.
func (s *GlobSource) WithFormat(f Format) *GlobSource {
	s.format = f
	return s
}

func (s *GlobSource) Name() string { return "glob:" + s.pattern }

// Expand returns one file source per match, sorted by path.
func (s *GlobSource) Expand() ([]Source, error) {
	base, pattern := doublestar.SplitPattern(filepath.ToSlash(s.pattern))

	var fsys fs.FS
	if base == "." {
		fsys = afero.NewIOFS(s.fs)
	} else {
		fsys = afero.NewIOFS(afero.NewBasePathFs(s.fs, base))
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern '%s': %w", s.pattern, err)
	}
	sort.Strings(matches)

	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		path := match
		if base != "." {
			path = filepath.Join(base, match)
		}
		file := File(path).WithFs(s.fs).Required(true)
		if s.format != nil {
			file.WithFormat(s.format)
		}
		sources = append(sources, file)
	}
	return sources, nil
}

// Load replaces earlier files with later ones wholesale. Config expands globs
// instead so each file is combined with the schema.
func (s *GlobSource) Load() (any, bool, error) {
	sources, err := s.Expand()
	if err != nil {
		return nil, false, err
	}
	var values []any
	for _, src := range sources {
		value, ok, err := src.Load()
		if err != nil {
			return nil, false, err
		}
		if ok {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	return Combine(nil, values...), true, nil
}

// ArgsSource reads `--a.b=value` and `--a.b value` overrides from command-line
// arguments. A flag without value is true.
type ArgsSource struct {
	args   []string
	format Format
	ignore map[string]bool
}

// Args creates a source from command-line arguments.
func Args(args []string) *ArgsSource {
	return &ArgsSource{args: args, format: YAML, ignore: make(map[string]bool)}
}

// Ignore skips the given flag names, e.g. a flag selecting the config file.
func (s *ArgsSource) Ignore(names ...string) *ArgsSource {
	for _, name := range names {
		s.ignore[strings.TrimLeft(name, "-")] = true
	}
	return s
}

func (s *ArgsSource) Name() string { return "args" }

func (s *ArgsSource) Load() (any, bool, error) {
	parsed, err := parseArgs(s.args, s.ignore)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	if len(parsed) == 0 {
		return nil, false, nil
	}

	flat := flattenMap(parsed, "")
	result := make(map[string]any, len(flat))
	for path, raw := range flat {
		str, _ := raw.(string)
		if len(str) > MaxValueSize {
			return nil, false, fmt.Errorf("%w: --%s", ErrValueSize, path)
		}
		setNestedValue(result, path, parseScalar(str, s.format))
	}
	return result, true, nil
}

// parseArgs processes command-line arguments into a nested map of strings.
func parseArgs(args []string, ignore map[string]bool) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// "--" ends flag parsing
			break
		}

		var keyPath string
		var valueStr string

		// Check for "--key=value" format
		if key, value, found := strings.Cut(argContent, "="); found {
			keyPath = key
			valueStr = value
			i++
		} else {
			// Handle "--key value" or "--booleanflag"
			keyPath = argContent
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" || ignore[keyPath] {
			continue
		}

		if err := ValidatePath(keyPath); err != nil {
			return nil, fmt.Errorf("invalid command-line key %q: %w", keyPath, err)
		}

		setNestedValue(result, keyPath, valueStr)
	}

	return result, nil
}

// flattenMap converts a nested map to a flat map with dot-notation paths.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := joinPath(prefix, key)
		if nestedMap, isMap := value.(map[string]any); isMap && len(nestedMap) > 0 {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}
