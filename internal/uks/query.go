// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// QueryOptions filters relationships during Query and Conflicts. Exact
// label filters and regular expressions may be combined; regexes must
// match the whole label.
type QueryOptions struct {
	Source  string
	RelType string
	Target  string

	SourceRegex  string
	RelTypeRegex string
	TargetRegex  string

	// MinWeight drops relationships below the threshold.
	MinWeight float64

	// MaxTTL, when positive, keeps only transient relationships whose
	// remaining lifetime does not exceed it.
	MaxTTL time.Duration

	// IncludeInherited walks parent relationships as well.
	IncludeInherited bool
}

// QueryResult is a matched relationship flattened to labels, with query
// bookkeeping attached.
type QueryResult struct {
	Source  string  `json:"source"`
	RelType string  `json:"reltype"`
	Target  string  `json:"target,omitempty"`
	Weight  float64 `json:"weight"`
	Value   float64 `json:"value"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
}

type compiledQuery struct {
	opts           QueryOptions
	source, rel, target *regexp.Regexp
}

func (s *Store) compile(opts QueryOptions) (*compiledQuery, error) {
	cq := &compiledQuery{opts: opts}
	var err error
	if opts.SourceRegex != "" {
		if cq.source, err = regexp.Compile("^(?:" + opts.SourceRegex + ")$"); err != nil {
			return nil, errors.Wrap(err, "source regex")
		}
	}
	if opts.RelTypeRegex != "" {
		if cq.rel, err = regexp.Compile("^(?:" + opts.RelTypeRegex + ")$"); err != nil {
			return nil, errors.Wrap(err, "reltype regex")
		}
	}
	if opts.TargetRegex != "" {
		if cq.target, err = regexp.Compile("^(?:" + opts.TargetRegex + ")$"); err != nil {
			return nil, errors.Wrap(err, "target regex")
		}
	}
	return cq, nil
}

func (cq *compiledQuery) matchSource(label string) bool {
	if cq.opts.Source != "" && label != cq.opts.Source {
		return false
	}
	if cq.source != nil && !cq.source.MatchString(label) {
		return false
	}
	return true
}

// matchLabels applies the label filters; the scalar filters (weight,
// remaining TTL) are evaluated inside Relationship.observe.
func (cq *compiledQuery) matchLabels(r *Relationship) bool {
	if cq.opts.RelType != "" && r.Type.Label() != cq.opts.RelType {
		return false
	}
	if cq.rel != nil && !cq.rel.MatchString(r.Type.Label()) {
		return false
	}
	if cq.opts.Target != "" && (r.Target == nil || r.Target.Label() != cq.opts.Target) {
		return false
	}
	if cq.target != nil && (r.Target == nil || !cq.target.MatchString(r.Target.Label())) {
		return false
	}
	return true
}

// matched returns the raw relationships selected by opts, updating hit
// and miss counters and the last-used stamp on every relationship
// examined.
func (s *Store) matched(opts QueryOptions) ([]*Relationship, error) {
	cq, err := s.compile(opts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var results []*Relationship
	for _, t := range s.Things() {
		if !cq.matchSource(t.Label()) {
			continue
		}
		var rels []*Relationship
		if opts.IncludeInherited {
			rels = s.GetAllRelationships([]*Thing{t}, false)
		} else {
			rels = t.Relationships()
		}
		for _, r := range rels {
			if r.observe(now, cq.matchLabels(r), opts.MinWeight, opts.MaxTTL) {
				results = append(results, r)
			}
		}
	}
	return results, nil
}

// Query returns the relationships selected by opts as label tuples.
func (s *Store) Query(opts QueryOptions) ([]QueryResult, error) {
	rels, err := s.matched(opts)
	if err != nil {
		return nil, err
	}
	results := make([]QueryResult, 0, len(rels))
	for _, r := range rels {
		weight, value, hits, misses := r.snapshot()
		qr := QueryResult{
			Source:  r.Source.Label(),
			RelType: r.Type.Label(),
			Weight:  weight,
			Value:   value,
			Hits:    hits,
			Misses:  misses,
		}
		if r.Target != nil {
			qr.Target = r.Target.Label()
		}
		results = append(results, qr)
	}
	return results, nil
}

// Conflicts returns relationships selected by opts that share a reltype
// but disagree on the target.
func (s *Store) Conflicts(opts QueryOptions) ([]*Relationship, error) {
	rels, err := s.matched(opts)
	if err != nil {
		return nil, err
	}
	var conflicts []*Relationship
	inConflicts := make(map[*Relationship]bool)
	seen := make(map[*Thing]*Relationship)
	for _, r := range rels {
		other, ok := seen[r.Type]
		if ok && other.Target != r.Target {
			if !inConflicts[other] {
				inConflicts[other] = true
				conflicts = append(conflicts, other)
			}
			inConflicts[r] = true
			conflicts = append(conflicts, r)
		} else if !ok {
			seen[r.Type] = r
		}
	}
	return conflicts, nil
}
