// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import "context"

// Mine is the minimal module template: it participates in the lifecycle
// but performs no work.
type Mine struct {
	Base
}

func NewMine() *Mine {
	return &Mine{Base: NewBase("Mine")}
}

func (m *Mine) Fire(context.Context) error { return nil }
