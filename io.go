// FILE: lixenwraith/setty/io.go
package setty

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// readDocument loads a configuration file for modification. A missing file
// yields an empty mapping.
func readDocument(fsys afero.Fs, path string, format Format) (map[string]any, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]any), nil
		}
		return nil, ioError("read config file", path, err)
	}

	value, err := format.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config file '%s': %w", format.Name(), path, err)
	}

	switch doc := value.(type) {
	case nil:
		return make(map[string]any), nil
	case map[string]any:
		return doc, nil
	default:
		return nil, fmt.Errorf("config file '%s' must contain a mapping, got %s", path, KindOf(value))
	}
}

// writeDocument serializes doc and replaces path atomically.
func writeDocument(fsys afero.Fs, path string, format Format, doc any) error {
	data, err := format.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config data to %s: %w", format.Name(), err)
	}
	return atomicWriteFile(fsys, path, data)
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return ioError("create directory", dir, err)
	}

	tempFile, err := afero.TempFile(fsys, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioError("create temporary file in", dir, err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			fsys.Remove(tempPath) // Clean up on any error
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return ioError("write temporary file", tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return ioError("sync temporary file", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return ioError("close temporary file", tempPath, err)
	}

	if err := fsys.Chmod(tempPath, 0644); err != nil {
		return ioError("set permissions on", tempPath, err)
	}

	if err := fsys.Rename(tempPath, path); err != nil {
		return ioError("rename temporary file to", path, err)
	}
	removed = true

	return nil
}
