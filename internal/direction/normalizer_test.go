package direction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"realm-server/internal/direction"
)

func allExitsContext() direction.ExitContext {
	return direction.ExitContext{ExitDirections: direction.Canonical}
}

func TestNormalize_CanonicalTokens(t *testing.T) {
	n := direction.NewNormalizer()

	t.Run("every canonical token resolves ok when an exit exists", func(t *testing.T) {
		for _, d := range direction.Canonical {
			res := n.Normalize(string(d), nil, allExitsContext())
			assert.Equal(t, direction.OutcomeOK, res.Outcome, "token %q", d)
			assert.Equal(t, d, res.Direction, "token %q", d)
		}
	})

	t.Run("every canonical token classifies as generate without an exit", func(t *testing.T) {
		for _, d := range direction.Canonical {
			res := n.Normalize(string(d), nil, direction.ExitContext{})
			assert.Equal(t, direction.OutcomeGenerate, res.Outcome, "token %q", d)
			assert.Equal(t, d, res.Direction, "token %q", d)
			assert.NotEmpty(t, res.Clarification, "token %q", d)
		}
	})
}

func TestNormalize_Shortcuts(t *testing.T) {
	n := direction.NewNormalizer()
	cases := map[string]direction.Direction{
		"n":     direction.North,
		"sw":    direction.Southwest,
		"u":     direction.Up,
		"d":     direction.Down,
		"enter": direction.In,
		"leave": direction.Out,
		"climb": direction.Up,
	}
	for input, want := range cases {
		res := n.Normalize(input, nil, allExitsContext())
		assert.Equal(t, direction.OutcomeOK, res.Outcome, "input %q", input)
		assert.Equal(t, want, res.Direction, "input %q", input)
	}
}

func TestNormalize_VerbPrefixes(t *testing.T) {
	n := direction.NewNormalizer()
	for _, input := range []string{"go north", "head north", "walk north", "GO NORTH"} {
		res := n.Normalize(input, nil, allExitsContext())
		assert.Equal(t, direction.OutcomeOK, res.Outcome, "input %q", input)
		assert.Equal(t, direction.North, res.Direction, "input %q", input)
	}
}

func TestNormalize_TypoCorrection(t *testing.T) {
	n := direction.NewNormalizer()

	t.Run("single edit corrects", func(t *testing.T) {
		cases := map[string]direction.Direction{
			"nrth":   direction.North,
			"norths": direction.North,
			"wesst":  direction.West,
			"soutth": direction.South,
		}
		for input, want := range cases {
			res := n.Normalize(input, nil, allExitsContext())
			assert.Equal(t, direction.OutcomeOK, res.Outcome, "input %q", input)
			assert.Equal(t, want, res.Direction, "input %q", input)
		}
	})

	t.Run("short inputs are never corrected", func(t *testing.T) {
		res := n.Normalize("nor", nil, allExitsContext())
		assert.Equal(t, direction.OutcomeUnknown, res.Outcome)
	})
}

func TestNormalize_NamedExits(t *testing.T) {
	n := direction.NewNormalizer()
	ctx := direction.ExitContext{
		ExitDirections: []direction.Direction{direction.East},
		NamedExits:     map[string]direction.Direction{"old bridge": direction.East},
	}
	res := n.Normalize("old bridge", nil, ctx)
	assert.Equal(t, direction.OutcomeOK, res.Outcome)
	assert.Equal(t, direction.East, res.Direction)
}

func TestNormalize_RelativeTerms(t *testing.T) {
	n := direction.NewNormalizer()

	t.Run("relative terms without a heading are always ambiguous", func(t *testing.T) {
		for _, term := range []string{"left", "right", "forward", "back", "ahead", "straight"} {
			res := n.Normalize(term, nil, allExitsContext())
			assert.Equal(t, direction.OutcomeAmbiguous, res.Outcome, "term %q", term)
			assert.NotEmpty(t, res.Clarification, "term %q", term)
		}
	})

	t.Run("relative terms rotate from the last heading", func(t *testing.T) {
		heading := direction.North
		cases := map[string]direction.Direction{
			"left":    direction.West,
			"right":   direction.East,
			"forward": direction.North,
			"back":    direction.South,
		}
		for term, want := range cases {
			res := n.Normalize(term, &heading, allExitsContext())
			assert.Equal(t, direction.OutcomeOK, res.Outcome, "term %q", term)
			assert.Equal(t, want, res.Direction, "term %q", term)
		}
	})

	t.Run("non-compass heading cannot anchor relative terms", func(t *testing.T) {
		heading := direction.Up
		res := n.Normalize("left", &heading, allExitsContext())
		assert.Equal(t, direction.OutcomeAmbiguous, res.Outcome)
	})
}

func TestNormalize_Unknown(t *testing.T) {
	n := direction.NewNormalizer()
	for _, input := range []string{"", "xyzzy", "sideways", "12"} {
		res := n.Normalize(input, nil, allExitsContext())
		assert.Equal(t, direction.OutcomeUnknown, res.Outcome, "input %q", input)
		assert.NotEmpty(t, res.Clarification, "input %q", input)
	}
}
