// Package configutil reads json5 configuration files with optional
// ".local" overrides, so an operator can keep machine-specific paths and
// pacing settings out of the checked-in config.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig reads and merges the following files, later entries taking
// priority:
//  1. <name>.<ext>
//  2. <name>.local.<ext>
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	base := filepath.Base(name)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	localPath := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local%s", prefix, ext))

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("configutil: %s: %w", name, err)
		}
		found = true
	}

	localData, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localData) > 0 {
		var override T
		if err := json5.Unmarshal(localData, &override); err != nil {
			return out, fmt.Errorf("configutil: %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merged local config overrides", "path", localPath)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}
