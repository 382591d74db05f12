package direction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"realm-server/internal/direction"
)

func TestOpposite(t *testing.T) {
	for _, d := range direction.Canonical {
		opp := d.Opposite()
		assert.True(t, opp.IsCanonical(), "opposite of %q", d)
		assert.Equal(t, d, opp.Opposite(), "opposite is involutive for %q", d)
		assert.NotEqual(t, d, opp, "no direction is its own opposite: %q", d)
	}
}

func TestParse(t *testing.T) {
	d, ok := direction.Parse("  North ")
	assert.True(t, ok)
	assert.Equal(t, direction.North, d)

	_, ok = direction.Parse("northish")
	assert.False(t, ok)
}

func TestIsCompass(t *testing.T) {
	assert.True(t, direction.Northeast.IsCompass())
	assert.False(t, direction.Up.IsCompass())
	assert.False(t, direction.In.IsCompass())
}
