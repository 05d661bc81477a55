// Package manifest writes the session's snap records to the output
// directory as a single archive file.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"snapmap-archiver/pkg/snap"
)

// Format selects the manifest encoding
type Format string

const (
	JSON   Format = "json"
	YAML   Format = "yaml"
	SQLite Format = "sqlite"
)

// ParseFormat accepts json, yaml or sqlite in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML, SQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q", s)
	}
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	if f == SQLite {
		return "db"
	}
	return string(f)
}

// FileName is archive_<unix seconds>.<ext>
func FileName(f Format, at time.Time) string {
	return fmt.Sprintf("archive_%d.%s", at.Unix(), f.Extension())
}

// FileWriter is the part of storage.Manager the writers need
type FileWriter interface {
	WriteFile(name string, write func(w io.Writer) error) error
	Path(name string) string
}

// Write stores records in the given format and returns the file name used.
// Records keep the order they are passed in.
func Write(out FileWriter, f Format, records []snap.Record, at time.Time) (string, error) {
	if records == nil {
		records = []snap.Record{}
	}
	name := FileName(f, at)

	var err error
	switch f {
	case JSON:
		err = out.WriteFile(name, func(w io.Writer) error {
			return encodeJSON(w, records)
		})
	case YAML:
		err = out.WriteFile(name, func(w io.Writer) error {
			return encodeYAML(w, records)
		})
	case SQLite:
		err = writeSQLite(out.Path(name), records)
	default:
		err = fmt.Errorf("unknown manifest format %q", f)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return name, nil
}

func encodeJSON(w io.Writer, records []snap.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func encodeYAML(w io.Writer, records []snap.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
