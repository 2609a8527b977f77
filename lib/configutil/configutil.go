package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ErrNotFound is returned when neither a config file nor its local override exist.
var ErrNotFound = fs.ErrNotExist

// localName returns the path of the local override of a config file,
// "dir/config.json5" becomes "dir/config.local.json5".
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readFile decodes the json5 file at path into out, it reports false if the file does not exist.
func readFile(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig decodes the config file at name and merges its local override over it.
// Fields set in <name>.local.<ext> win over the ones in <name>.<ext>, either file may be missing
// but not both. json5 is a superset of json, so plain json files are read as well.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readFile(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	local := localName(name)
	foundLocal, err := readFile(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Debug("merged config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, ErrNotFound
	}
	return out, nil
}

// ReadRecursively looks for name in the working directory and then every parent up to the root,
// the first directory containing it is read with ReadConfig.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return zero, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return zero, ErrNotFound
		}
		current = parent
	}
}
