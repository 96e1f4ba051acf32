package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"lumen/pkg/preset"
)

// Storage binds the document codecs to their files. Every successful
// migration is written back immediately so subsequent loads skip it.
type Storage struct {
	presetsPath string
	configPath  string
	log         *zap.Logger
}

// NewStorage creates a Storage over the two document paths. The parent
// directories are created on first save.
func NewStorage(presetsPath, configPath string, log *zap.Logger) *Storage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Storage{presetsPath: presetsPath, configPath: configPath, log: log}
}

// LoadPresets reads the preset set. A missing file is an empty set, not an
// error. A schema failure returns the empty set alongside the error so the
// caller can fall back without losing the diagnostic.
func (s *Storage) LoadPresets() ([]preset.Preset, *int, error) {
	data, err := os.ReadFile(s.presetsPath)
	if os.IsNotExist(err) {
		return []preset.Preset{}, nil, nil
	}
	if err != nil {
		return []preset.Preset{}, nil, fmt.Errorf("read %s: %w", s.presetsPath, err)
	}

	presets, migratedFrom, err := DecodePresets(data)
	if err != nil {
		return []preset.Preset{}, nil, fmt.Errorf("load %s: %w", s.presetsPath, err)
	}
	if migratedFrom != nil {
		s.log.Info("migrated presets document",
			zap.Int("from_version", *migratedFrom),
			zap.Int("to_version", PresetsVersion))
		if err := s.SavePresets(presets); err != nil {
			// Write-back is an optimization; the load still succeeded.
			s.log.Warn("presets write-back failed", zap.Error(err))
		}
	}
	return presets, migratedFrom, nil
}

// SavePresets writes the preset set in the current format.
func (s *Storage) SavePresets(presets []preset.Preset) error {
	data, err := EncodePresets(presets)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.presetsPath, data)
}

// LoadConfig reads the app config. A missing file yields the defaults.
// A schema failure returns the defaults alongside the error.
func (s *Storage) LoadConfig() (AppConfig, *int, error) {
	data, err := os.ReadFile(s.configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil, nil
	}
	if err != nil {
		return DefaultConfig(), nil, fmt.Errorf("read %s: %w", s.configPath, err)
	}

	cfg, migratedFrom, err := DecodeConfig(data)
	if err != nil {
		return DefaultConfig(), nil, fmt.Errorf("load %s: %w", s.configPath, err)
	}
	if migratedFrom != nil {
		s.log.Info("migrated config document",
			zap.Int("from_version", *migratedFrom),
			zap.Int("to_version", ConfigVersion))
		if err := s.SaveConfig(cfg); err != nil {
			s.log.Warn("config write-back failed", zap.Error(err))
		}
	}
	return cfg, migratedFrom, nil
}

// SaveConfig writes the app config in the current format.
func (s *Storage) SaveConfig(cfg AppConfig) error {
	data, err := EncodeConfig(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.configPath, data)
}

// PresetsPath returns the presets document location (for file watching).
func (s *Storage) PresetsPath() string { return s.presetsPath }

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
