// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := MakeWith("a", "b")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	s.Insert("c")
	assert.True(t, s.Has("c"))
	assert.Len(t, s, 3)
}

func TestSorted(t *testing.T) {
	s := MakeWith("method", "function", "namespace")
	assert.Equal(t, []string{"function", "method", "namespace"}, Sorted(s))
	assert.Empty(t, Sorted(Make[string]()))
}
