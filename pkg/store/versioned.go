// Package store persists lumen's documents (presets, app config) as
// version-tagged JSON and migrates older formats forward on load. Documents
// predating version tagging load through a legacy fallback; documents from a
// newer build are refused rather than silently truncated.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrFutureVersion marks a document written by a newer build.
var ErrFutureVersion = errors.New("document version is newer than this build")

// SchemaError reports a load that failed on both the versioned path and the
// legacy fallback. Both causes are kept so neither failure is silently
// dropped.
type SchemaError struct {
	VersionedErr error
	LegacyErr    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document unreadable: not a versioned document (%v); legacy fallback failed (%v)",
		e.VersionedErr, e.LegacyErr)
}

// Migration rewrites a document from the version directly below
// TargetVersion to TargetVersion. Steps must be pure data transforms.
type Migration interface {
	TargetVersion() int
	Apply(data json.RawMessage) (json.RawMessage, error)
}

// versionProbe reads just the envelope tag.
type versionProbe struct {
	Version *int `json:"version"`
}

// LoadDocument decodes data as a T tagged with currentVersion, applying
// single-step migrations as needed. migratedFrom is non-nil iff the document
// was older than currentVersion and names the version it was read at; the
// caller should re-save in that case so the next load skips migration.
func LoadDocument[T any](data []byte, currentVersion int, migrations []Migration) (doc T, migratedFrom *int, err error) {
	startVersion := 0
	var versionedErr error

	var probe versionProbe
	if perr := json.Unmarshal(data, &probe); perr != nil {
		// Not a JSON object at all (e.g. the legacy bare array).
		versionedErr = perr
	} else if probe.Version == nil {
		versionedErr = errors.New("no version field")
	} else {
		startVersion = *probe.Version
	}
	legacy := versionedErr != nil

	if startVersion > currentVersion {
		return doc, nil, fmt.Errorf("%w: document v%d, running v%d",
			ErrFutureVersion, startVersion, currentVersion)
	}

	payload := json.RawMessage(data)
	for v := startVersion; v < currentVersion; v++ {
		step := findMigration(migrations, v+1)
		if step == nil {
			err := fmt.Errorf("no migration from v%d to v%d", v, v+1)
			if legacy {
				return doc, nil, &SchemaError{VersionedErr: versionedErr, LegacyErr: err}
			}
			return doc, nil, err
		}
		payload, err = step.Apply(payload)
		if err != nil {
			err = fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
			if legacy {
				return doc, nil, &SchemaError{VersionedErr: versionedErr, LegacyErr: err}
			}
			return doc, nil, err
		}
	}

	if err := json.Unmarshal(payload, &doc); err != nil {
		if legacy {
			return doc, nil, &SchemaError{VersionedErr: versionedErr, LegacyErr: err}
		}
		return doc, nil, fmt.Errorf("decode v%d document: %w", currentVersion, err)
	}

	if startVersion != currentVersion {
		from := startVersion
		return doc, &from, nil
	}
	return doc, nil, nil
}

func findMigration(migrations []Migration, target int) Migration {
	for _, m := range migrations {
		if m.TargetVersion() == target {
			return m
		}
	}
	return nil
}

// SaveDocument encodes doc pretty-printed. The caller embeds the current
// version tag in doc itself.
func SaveDocument(doc any) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}
