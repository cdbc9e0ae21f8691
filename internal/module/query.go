// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
)

// Match is one relationship found by UKSQuery, flattened to labels.
type Match struct {
	Source  string `json:"source"`
	RelType string `json:"reltype"`
	Target  string `json:"target"`
}

// UKSQuery searches every relationship with case-insensitive,
// unanchored regular expressions. Unlike Store.Query it does not touch
// hit and miss counters.
type UKSQuery struct {
	Base
}

func NewUKSQuery() *UKSQuery {
	return &UKSQuery{Base: NewBase("UKSQuery")}
}

// Fire is a no-op; the module only exposes helpers.
func (q *UKSQuery) Fire(context.Context) error { return nil }

// Query returns the relationships whose source, reltype, and target
// labels all contain a match for the corresponding pattern. Empty
// patterns match everything; relationships without a target never match.
func (q *UKSQuery) Query(source, relType, target string) ([]Match, error) {
	store := q.Store()
	if store == nil {
		return nil, nil
	}
	srcRe, err := regexp.Compile("(?i)" + source)
	if err != nil {
		return nil, errors.Wrap(err, "source pattern")
	}
	relRe, err := regexp.Compile("(?i)" + relType)
	if err != nil {
		return nil, errors.Wrap(err, "reltype pattern")
	}
	tgtRe, err := regexp.Compile("(?i)" + target)
	if err != nil {
		return nil, errors.Wrap(err, "target pattern")
	}

	var out []Match
	for _, rel := range store.GetAllRelationships(store.Things(), false) {
		if rel.Target == nil {
			continue
		}
		if srcRe.MatchString(rel.Source.Label()) &&
			relRe.MatchString(rel.Type.Label()) &&
			tgtRe.MatchString(rel.Target.Label()) {
			out = append(out, Match{
				Source:  rel.Source.Label(),
				RelType: rel.Type.Label(),
				Target:  rel.Target.Label(),
			})
		}
	}
	return out, nil
}
