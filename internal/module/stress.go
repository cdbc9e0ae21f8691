// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// MaxStressItems caps a single bulk insertion.
const MaxStressItems = 100000

// StressTest bulk-inserts a three-level hierarchy of test Things, used to
// exercise the store at scale.
type StressTest struct {
	Base
}

func NewStressTest() *StressTest {
	return &StressTest{Base: NewBase("StressTest")}
}

// Fire is a no-op; insertion is request driven.
func (s *StressTest) Fire(context.Context) error { return nil }

// AddManyTestItems populates the store with count Things arranged in a
// hierarchy of A, B, and C level nodes.
func (s *StressTest) AddManyTestItems(count int) error {
	if count <= 0 {
		return errors.New("count must be positive")
	}
	if count > MaxStressItems {
		return errors.Errorf("count exceeds maximum %d", MaxStressItems)
	}
	store := s.Store()
	if store == nil {
		return errors.New("no store attached")
	}

	created := 0
	for outer := 0; created < count && outer < 100; outer++ {
		parent := store.GetOrAddThing(fmt.Sprintf("A%d", outer), nil)
		if created++; created >= count {
			break
		}
		for j := 0; j < 100; j++ {
			mid := store.GetOrAddThing(fmt.Sprintf("B%d_%d", outer, j), parent)
			if created++; created >= count {
				break
			}
			for k := 0; k < 10; k++ {
				store.GetOrAddThing(fmt.Sprintf("C%d_%d_%d", outer, j, k), mid)
				if created++; created >= count {
					break
				}
			}
			if created >= count {
				break
			}
		}
	}
	fmt.Fprintf(s.Output(), "StressTest: added %d items\n", created)
	return nil
}
