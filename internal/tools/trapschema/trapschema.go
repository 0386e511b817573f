// Package trapschema writes the JSON schema of the persisted trap blob.
package trapschema

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
)

// Config holds configuration for schema generation.
type Config struct {
	// OutPath is the schema file; empty writes to the output stream.
	OutPath string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.OutPath, "out", "", "path to write the JSON schema (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BuildSchema reflects the saved traps blob: an array of trap definitions.
func BuildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	entry := reflector.ReflectFromType(reflect.TypeOf(trap.Definition{}))
	if entry == nil {
		return nil, errors.New("reflect trap definition schema")
	}
	entry.Version = ""
	entry.Title = "Trap Definition"

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "Saved Traps",
		Description: "Persisted trap-macros.savedTraps setting: every registered trap definition.",
		Items:       entry,
	}, nil
}

// Run builds the schema and writes it to cfg.OutPath or out.
func Run(cfg Config, out io.Writer) error {
	schema, err := BuildSchema()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if cfg.OutPath == "" {
		if out == nil {
			return errors.New("output is required")
		}
		_, err := out.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := cfg.OutPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, cfg.OutPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
