package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every schema file under dir. When include is non-empty only
// the named subdirectories of dir are read. Files that fail to parse are
// reported in the joined error; the shapes that did load are still returned.
func LoadDir(dir string, include []string) ([]Shape, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	roots := []string{dir}
	if len(include) > 0 {
		roots = roots[:0]
		for _, sub := range include {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				continue
			}
			roots = append(roots, filepath.Join(dir, sub))
		}
	}

	var (
		shapes []Shape
		errs   []error
	)
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && skipName(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSchemaFile(path) {
				return nil
			}
			s, err := LoadFile(path)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			shapes = append(shapes, s)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("schema dir %s: %w", root, err))
		}
	}
	return shapes, errors.Join(errs...)
}

// LoadFile parses a single .yaml, .yml or .json schema file. A missing
// name defaults to the file name without its extension.
func LoadFile(path string) (Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Shape{}, err
	}

	var s Shape
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return Shape{}, fmt.Errorf("schema file %s: %w", path, err)
	}

	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	s.Source = path
	s.normalize()
	return s, nil
}

func isSchemaFile(path string) bool {
	if skipName(filepath.Base(path)) {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// skipName matches hidden files and dunder files.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__")
}
