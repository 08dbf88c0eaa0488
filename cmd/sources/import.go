package sources

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/marc"
)

// Definitions is the layout of a sources YAML file:
//
//	sources:
//	  - code: rsl
//	    name: Russian State Library
//	    reset: true
//	    files:
//	      - uri: /data/rsl.iso
//	        encoding: cp1251
type Definitions struct {
	Sources []SourceDefinition `yaml:"sources"`
}

// SourceDefinition describes one source. Active defaults to true.
type SourceDefinition struct {
	Code   string           `yaml:"code"`
	Name   string           `yaml:"name"`
	Reset  bool             `yaml:"reset"`
	Active *bool            `yaml:"active"`
	Files  []FileDefinition `yaml:"files"`
}

// FileDefinition describes one records file. Empty fields take the entity defaults.
type FileDefinition struct {
	URI      string `yaml:"uri"`
	Format   string `yaml:"format"`
	Schema   string `yaml:"schema"`
	Encoding string `yaml:"encoding"`
}

// ImportResult counts the changes made by Import.
type ImportResult struct {
	SourcesCreated int
	SourcesUpdated int
	FilesAdded     int
}

// ParseDefinitions decodes and checks a sources YAML document.
func ParseDefinitions(r io.Reader) (*Definitions, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Definitions
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	seen := make(map[string]bool, len(defs.Sources))
	for i, s := range defs.Sources {
		if s.Code == "" {
			return nil, fmt.Errorf("source %d: code is required", i+1)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("source %s: defined twice", s.Code)
		}
		seen[s.Code] = true
		for _, f := range s.Files {
			if err := f.validate(); err != nil {
				return nil, fmt.Errorf("source %s: %w", s.Code, err)
			}
		}
	}
	return &defs, nil
}

func (f FileDefinition) validate() error {
	if f.URI == "" {
		return fmt.Errorf("file uri is required")
	}
	if f.Format != "" {
		if _, err := marc.ParseFormat(f.Format); err != nil {
			return fmt.Errorf("file %s: %w", f.URI, err)
		}
	}
	if f.Schema != "" {
		if _, err := marc.ParseSchema(f.Schema); err != nil {
			return fmt.Errorf("file %s: %w", f.URI, err)
		}
	}
	if f.Encoding != "" {
		if _, err := marc.LookupEncoding(f.Encoding); err != nil {
			return fmt.Errorf("file %s: %w", f.URI, err)
		}
	}
	return nil
}

// Import creates or updates the defined sources and adds missing files in
// one transaction. Files are never removed.
func Import(ctx context.Context, db *gorm.DB, defs *Definitions) (ImportResult, error) {
	var result ImportResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSourceRepository(tx)
		for _, def := range defs.Sources {
			source := &entities.Source{
				Code:   def.Code,
				Name:   def.Name,
				Reset:  def.Reset,
				Active: def.Active == nil || *def.Active,
			}
			created, err := repo.Save(ctx, source)
			if err != nil {
				return err
			}
			if created {
				result.SourcesCreated++
			} else {
				result.SourcesUpdated++
			}

			for _, fd := range def.Files {
				added, err := repo.AddFile(ctx, &entities.SourceRecordsFile{
					SourceID: source.ID,
					FileURI:  fd.URI,
					Format:   fd.Format,
					Schema:   fd.Schema,
					Encoding: fd.Encoding,
				})
				if err != nil {
					return err
				}
				if added {
					result.FilesAdded++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}
