package ruleset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Content subdirectories read by LoadDirectory.
const (
	ClassesDir = "classes"
	WeaponsDir = "weapons"
)

// LoadDirectory reads every class and weapon definition under root/classes
// and root/weapons. Files may be YAML (.yaml, .yml) or TOML (.toml).
// Unknown fields and missing optional values are logged and tolerated;
// unparseable files and invalid definitions are errors.
//
// Precondition: root must be a readable directory containing both subdirectories.
// Postcondition: Returns a populated Registry or a non-nil error.
func LoadDirectory(root string, logger *zap.Logger) (*Registry, error) {
	reg := NewRegistry()

	classFiles, err := definitionFiles(filepath.Join(root, ClassesDir))
	if err != nil {
		return nil, err
	}
	for _, path := range classFiles {
		def, err := decodeFile[ClassDef](path, logger)
		if err != nil {
			return nil, err
		}
		def.Normalize(logger)
		if err := reg.RegisterClass(def); err != nil {
			return nil, fmt.Errorf("registering class from %q: %w", path, err)
		}
	}

	weaponFiles, err := definitionFiles(filepath.Join(root, WeaponsDir))
	if err != nil {
		return nil, err
	}
	for _, path := range weaponFiles {
		def, err := decodeFile[WeaponDef](path, logger)
		if err != nil {
			return nil, err
		}
		def.Normalize(logger)
		if err := reg.RegisterWeapon(def); err != nil {
			return nil, fmt.Errorf("registering weapon from %q: %w", path, err)
		}
	}
	return reg, nil
}

func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading definition dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".toml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func decodeFile[T any](path string, logger *zap.Logger) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var def *T
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		def, err = DecodeTOML[T](data, logger.With(zap.String("file", path)))
	} else {
		def, err = DecodeYAML[T](data, logger.With(zap.String("file", path)))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return def, nil
}

// DecodeYAML decodes a single definition document. A document with unknown
// fields is decoded again leniently after logging the strict-mode error.
func DecodeYAML[T any](data []byte, logger *zap.Logger) (*T, error) {
	var strict T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	strictErr := dec.Decode(&strict)
	if strictErr == nil {
		return &strict, nil
	}
	var lenient T
	if err := yaml.Unmarshal(data, &lenient); err != nil {
		return nil, err
	}
	logger.Warn("definition has unrecognised fields; ignoring them", zap.Error(strictErr))
	return &lenient, nil
}

// DecodeTOML decodes a single definition document, logging any keys that do
// not map to a definition field.
func DecodeTOML[T any](data []byte, logger *zap.Logger) (*T, error) {
	var def T
	md, err := toml.Decode(string(data), &def)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logger.Warn("definition has unrecognised fields; ignoring them", zap.Strings("keys", keys))
	}
	return &def, nil
}

// DecodeJSON decodes a single definition document stored as JSON, logging
// and tolerating unknown fields the same way DecodeYAML does.
func DecodeJSON[T any](data []byte, logger *zap.Logger) (*T, error) {
	var strict T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	strictErr := dec.Decode(&strict)
	if strictErr == nil {
		return &strict, nil
	}
	var lenient T
	if err := json.Unmarshal(data, &lenient); err != nil {
		return nil, err
	}
	logger.Warn("definition has unrecognised fields; ignoring them", zap.Error(strictErr))
	return &lenient, nil
}
