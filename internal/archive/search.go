// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for snapshot queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string matched against the
	// source, relationship type, and target labels.
	Query string

	// Source filters by exact source label.
	Source string

	// RelType filters by exact relationship type label.
	RelType string

	// Target filters by exact target label.
	Target string

	// MaxResults limits result count. Zero uses the archive default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Source == "" && q.RelType == "" && q.Target == ""
}

// Result is one archived statement.
type Result struct {
	Source  string  `json:"source" yaml:"source"`
	RelType string  `json:"reltype" yaml:"reltype"`
	Target  string  `json:"target,omitempty" yaml:"target,omitempty"`
	Weight  float64 `json:"weight" yaml:"weight"`
	TTL     float64 `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// Search queries the snapshot with optional full-text search and
// structured filters. Full-text results are ranked by relevance;
// structured-only queries are sorted by source, reltype, target.
func (a *Archive) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = a.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT s.source, s.reltype, s.target, s.weight, s.ttl
			FROM statements_fts
			JOIN statements s ON s.rowid = statements_fts.rowid
			WHERE statements_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT s.source, s.reltype, s.target, s.weight, s.ttl
			FROM statements s
			WHERE 1=1`)
	}

	if opts.Source != "" {
		qb.WriteString(` AND s.source = ?`)
		args = append(args, opts.Source)
	}
	if opts.RelType != "" {
		qb.WriteString(` AND s.reltype = ?`)
		args = append(args, opts.RelType)
	}
	if opts.Target != "" {
		qb.WriteString(` AND s.target = ?`)
		args = append(args, opts.Target)
	}

	if useFTS {
		qb.WriteString(` ORDER BY statements_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY s.source, s.reltype, s.target`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := a.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Source, &r.RelType, &r.Target, &r.Weight, &r.TTL); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// Len returns the number of archived statements.
func (a *Archive) Len(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT count(*) FROM statements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting statements: %w", err)
	}
	return n, nil
}
