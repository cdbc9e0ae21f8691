// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"strings"

	"github.com/pdiddy/brainsim/internal/uks"
)

// UKSStatement turns whitespace-separated "source reltype target..."
// text into statements. Everything after the second word joins into the
// target label.
type UKSStatement struct {
	Base
}

func NewUKSStatement() *UKSStatement {
	return &UKSStatement{Base: NewBase("UKSStatement")}
}

// Fire is a no-op; the module only exposes helpers.
func (s *UKSStatement) Fire(context.Context) error { return nil }

// AddStatement parses text and asserts it. Text with fewer than three
// words is ignored and returns nil.
func (s *UKSStatement) AddStatement(text string) *uks.Relationship {
	store := s.Store()
	if store == nil {
		return nil
	}
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return nil
	}
	return store.AddStatement(parts[0], parts[1], strings.Join(parts[2:], " "))
}
