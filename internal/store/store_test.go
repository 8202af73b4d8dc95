package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Offset: 0, Limit: 20}, NewPage(1, 20))
	assert.Equal(t, Page{Offset: 40, Limit: 20}, NewPage(3, 20))
	assert.Equal(t, Page{Offset: 0, Limit: 10}, NewPage(0, 10))
	assert.Equal(t, Page{Offset: math.MaxInt, Limit: 100}, NewPage(math.MaxInt, 100))
	assert.Equal(t, Page{Offset: math.MaxInt, Limit: 100}, NewPage(math.MaxInt/50, 100))
}

func TestPageBounds(t *testing.T) {
	lo, hi := Page{Offset: 2, Limit: 2}.Bounds(5)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 4, hi)

	lo, hi = Page{Offset: 4, Limit: 10}.Bounds(5)
	assert.Equal(t, 4, lo)
	assert.Equal(t, 5, hi)

	lo, hi = Page{Offset: 9, Limit: 1}.Bounds(5)
	assert.Equal(t, 5, lo)
	assert.Equal(t, 5, hi)

	lo, hi = Page{}.Bounds(3)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 3, hi)
}
