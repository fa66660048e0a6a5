// FILE: lixenwraith/setty/discovery.go
package setty

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileDiscoveryOptions describes where a configuration file may live. An
// explicit location (CLI flag, then environment variable) wins over searching.
type FileDiscoveryOptions struct {
	Name       string   // base name without extension
	Extensions []string // tried in order within each directory
	Paths      []string // searched before the standard directories
	EnvVar     string   // names the file explicitly, e.g. MYAPP_CONFIG
	CLIFlag    string   // names the file explicitly, e.g. --config

	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions searches the current directory and the XDG
// directories for appName with every supported extension.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// explicitPath returns the file named by the CLI flag or the environment.
func (o FileDiscoveryOptions) explicitPath(args []string) (string, bool) {
	if o.CLIFlag != "" {
		for i, arg := range args {
			if arg == o.CLIFlag && i+1 < len(args) {
				return args[i+1], true
			}
			if value, found := strings.CutPrefix(arg, o.CLIFlag+"="); found {
				return value, true
			}
		}
	}
	if o.EnvVar != "" {
		if value := os.Getenv(o.EnvVar); value != "" {
			return value, true
		}
	}
	return "", false
}

// SearchDirs lists the directories searched when no file is named explicitly.
func (o FileDiscoveryOptions) SearchDirs() []string {
	dirs := append([]string(nil), o.Paths...)
	if o.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if o.UseXDG {
		dirs = append(dirs, getXDGConfigPaths(o.Name)...)
	}
	return dirs
}

// Discover returns a file source for the configuration file. A file named
// explicitly is required to exist; a searched one is found only if it exists.
func Discover(fs afero.Fs, args []string, opts FileDiscoveryOptions) (*FileSource, bool) {
	if path, ok := opts.explicitPath(args); ok {
		return File(path).WithFs(fs).Required(true), true
	}

	for _, dir := range opts.SearchDirs() {
		for _, ext := range opts.Extensions {
			candidate := File(filepath.Join(dir, opts.Name+ext)).WithFs(fs)
			if info, err := fs.Stat(candidate.Path()); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}
	return nil, false
}

// DiscoverFile is Discover returning only the path.
func DiscoverFile(fs afero.Fs, args []string, opts FileDiscoveryOptions) (string, bool) {
	src, ok := Discover(fs, args, opts)
	if !ok {
		return "", false
	}
	return src.Path(), true
}

// WithFileDiscovery uses the discovered file as the file layer and excludes
// the CLI flag from command-line overrides. Finding nothing is not an error.
func (b *Builder[T]) WithFileDiscovery(opts FileDiscoveryOptions) *Builder[T] {
	if opts.CLIFlag != "" {
		b.ignoreFlags = append(b.ignoreFlags, opts.CLIFlag)
	}
	if src, ok := Discover(b.fs, b.args, opts); ok {
		b.file = src.Path()
		b.fileRequired = src.required
	}
	return b
}

// getXDGConfigPaths returns $XDG_CONFIG_HOME/<app> (or ~/.config/<app>)
// followed by each of $XDG_CONFIG_DIRS, defaulting to /etc/xdg and /etc.
func getXDGConfigPaths(appName string) []string {
	var paths []string
	if home, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(home, appName))
	}

	systemDirs := []string{"/etc/xdg", "/etc"}
	if env := os.Getenv("XDG_CONFIG_DIRS"); env != "" {
		systemDirs = filepath.SplitList(env)
	}
	for _, dir := range systemDirs {
		paths = append(paths, filepath.Join(dir, appName))
	}
	return paths
}
