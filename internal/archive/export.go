// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the archived statements to Dir/export.yaml. It
// supports the same filters as Search.
func (a *Archive) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := a.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(a.dir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the archived statements to Dir/export.json. It
// supports the same filters as Search.
func (a *Archive) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := a.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(a.dir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (a *Archive) exportEntries(ctx context.Context, opts QueryOptions) ([]Result, error) {
	opts.MaxResults = exportLimit
	entries, err := a.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	return entries, nil
}
