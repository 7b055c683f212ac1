package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"claimlens/internal/sources"
)

// Schema describes an input layout that differs from the defaults. Blank
// fields leave the environment value in place.
//
//	columns:
//	  month: service_month
//	  payer: insurer
//	specialty_delimiters: ";|"
//	separator: ";"
type Schema struct {
	Columns             sources.Columns `yaml:"columns"`
	SpecialtyDelimiters string          `yaml:"specialty_delimiters"`
	Separator           string          `yaml:"separator"`
}

// LoadSchema reads a YAML schema file. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func LoadSchema(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()

	var s Schema
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode schema file %s: %w", path, err)
	}
	return &s, nil
}

// ApplySchema overrides the ingestion settings named in s.
func (c *Config) ApplySchema(s *Schema) {
	if s == nil {
		return
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.ColumnMonth, s.Columns.Month)
	set(&c.ColumnPayer, s.Columns.Payer)
	set(&c.ColumnCategory, s.Columns.ServiceCategory)
	set(&c.ColumnSpecialty, s.Columns.Specialty)
	set(&c.ColumnPaidAmount, s.Columns.PaidAmount)
	set(&c.SpecialtyDelimiters, s.SpecialtyDelimiters)
	set(&c.CSVSeparator, s.Separator)
}

// LoadWithSchema loads the environment configuration and applies
// CLAIMS_SCHEMA_FILE when it is set.
func LoadWithSchema() (*Config, error) {
	cfg := Load()
	if cfg.SchemaFile == "" {
		return cfg, nil
	}
	s, err := LoadSchema(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplySchema(s)
	return cfg, nil
}
