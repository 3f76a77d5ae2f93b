// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name looked up in the working directory
// and the user config directory.
const FileName = "cfnpack.yaml"

// Type is the in-memory representation of the loaded configuration.
//
// Fields:
//   - Source: absolute path of the YAML file loaded.
//   - Namespace: optional dot-prefixed keyspace used to prefer namespaced
//     lookups (e.g. "publish.region" before "region").
//   - Data: raw key/value tree unmarshaled from YAML.
//
// Data is kept as map[string]any so sections can be decoded lazily into the
// types owned by each package (see Decode).
type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

// Config holds the global, lazily-initialized configuration instance.
var Config Type

// ErrNoConfigFile is returned by Load when none of the candidate locations
// holds a config file.
var ErrNoConfigFile = errors.New("no config file found in standard locations")

// init attempts to load configuration at process start. Errors are ignored so
// the application can still run without a config file.
func init() {
	_, _ = Load()
}

// GetBool returns the boolean value for the given dotted key path. A single
// defaultValue may be provided and is returned when the key is missing.
func GetBool(key string, defaultValue ...bool) (bool, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, errors.New("value is not a bool")
	}
	return b, nil
}

// GetInt returns the integer value for the given dotted key path. A single
// defaultValue may be provided and is returned when the key is missing.
// YAML numbers may decode as int, int64, or float64; common cases are handled.
func GetInt(key string, defaultValue ...int) (int, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.New("value is not an int")
	}
}

// GetString returns the string value for the given dotted key path. If the key
// is not found and a single defaultValue is provided, the default is returned.
// Returns an error if the value exists but is not a string.
func GetString(key string, defaultValue ...string) (string, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", errors.New("value is not a string")
	}

	return s, nil
}

// GetStringSlice returns the string slice value for the given dotted key path.
// If the key is not found and a single default slice is provided, that default
// is returned. Returns an error if the value exists but is not a string slice.
func GetStringSlice(key string, defaultValue ...[]string) ([]string, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return nil, err
	}

	switch v := val.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("slice element is not a string")
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, errors.New("value is not a slice")
	}
}

// Decode unmarshals the subtree at key into out, which must be a pointer. The
// boolean result reports whether the key was present; out is left untouched
// when it was not, so callers can pre-populate defaults.
func Decode(key string, out any) (bool, error) {
	val, err := lookup(key)
	if err != nil {
		return false, nil //nolint:nilerr // Missing sections keep defaults.
	}

	raw, err := yaml.Marshal(val)
	if err != nil {
		return true, fmt.Errorf("failed to re-encode %s: %w", key, err)
	}

	if err := yaml.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return true, nil
}

// Load reads the YAML configuration file and populates the global Config. An
// explicit path may be passed to bypass the standard location lookup.
//
// Returns the loaded Type or an error if the file could not be located or
// parsed.
func Load(cfgFilePath ...string) (Type, error) {
	var (
		path string
		err  error
	)
	if len(cfgFilePath) > 0 && cfgFilePath[0] != "" {
		path = cfgFilePath[0]
	} else if path, err = getConfigFile(); err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{}, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	Config = Type{
		Source: path,
		Data:   data}

	return Config, nil
}

// lookup reloads the configuration when it is empty and then resolves key,
// preferring the namespaced candidate.
func lookup(key string) (any, error) {
	if len(Config.Data) == 0 {
		_, _ = Load()
	}
	return Config.get(key)
}

// get traverses the configuration tree using a dotted key path (e.g.
// "publish.bucket_prefix"). If Namespace is set, a namespaced candidate key is
// attempted first (Namespace + "." + kspec), then the unnamespaced key.
// Returns the raw value (any) if found.
func (cfg *Type) get(kspec string) (any, error) {
	candidateKeys := []string{kspec}
	if cfg.Namespace != "" {
		candidateKeys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidateKeys {
		keys := strings.Split(key, ".")
		var current interface{} = cfg.Data

		success := true
		for _, key := range keys {
			m, ok := current.(map[string]interface{})
			if !ok {
				success = false
				break
			}
			current, ok = m[key]
			if !ok {
				success = false
				break
			}
		}

		if success {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

// getConfigFile returns the path to the YAML config file. If the
// CFNPACK_CFG_FILE environment variable is set, it is treated as the full path
// to the config file. Otherwise cfnpack.yaml in the working directory is used,
// and finally cfnpack.yaml in the OS-specific user configuration directory.
// The file must exist and not be a directory.
func getConfigFile() (string, error) {
	if cfgPath := os.Getenv("CFNPACK_CFG_FILE"); cfgPath != "" {
		if fileInfo, err := os.Stat(cfgPath); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file from CFNPACK_CFG_FILE: %s", cfgPath)
				return cfgPath, nil
			}
			return "", fmt.Errorf("CFNPACK_CFG_FILE points to a directory: %s", cfgPath)
		}
		return "", fmt.Errorf("config file not found at CFNPACK_CFG_FILE path: %s", cfgPath)
	}

	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, FileName))
	}

	for _, file := range candidates {
		if fileInfo, err := os.Stat(file); err == nil && !fileInfo.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, nil
		}
	}

	return "", ErrNoConfigFile
}
