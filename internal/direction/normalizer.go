package direction

import (
	"fmt"
	"strings"
)

// Outcome classifies the result of normalizing raw movement input.
type Outcome string

const (
	// OutcomeOK means a canonical direction was resolved and an exit exists.
	OutcomeOK Outcome = "ok"
	// OutcomeAmbiguous means a relative term was used without a known heading.
	OutcomeAmbiguous Outcome = "ambiguous"
	// OutcomeUnknown means the input matched nothing the normalizer knows.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeGenerate means the direction resolved but no exit exists yet.
	OutcomeGenerate Outcome = "generate"
)

// Resolution is the classified result of a single normalization.
type Resolution struct {
	Outcome       Outcome
	Direction     Direction
	Clarification string
}

// ExitContext carries the current location's exit information into the
// normalizer so named exits and exit existence can be resolved.
type ExitContext struct {
	// ExitDirections lists the directions with a concrete edge.
	ExitDirections []Direction
	// NamedExits maps a lowercase exit name or landmark alias to its direction.
	NamedExits map[string]Direction
}

func (c ExitContext) hasExit(d Direction) bool {
	for _, e := range c.ExitDirections {
		if e == d {
			return true
		}
	}
	return false
}

// shortcuts maps common abbreviations and synonyms to canonical directions.
var shortcuts = map[string]Direction{
	"n":          North,
	"s":          South,
	"e":          East,
	"w":          West,
	"ne":         Northeast,
	"nw":         Northwest,
	"se":         Southeast,
	"sw":         Southwest,
	"u":          Up,
	"d":          Down,
	"i":          In,
	"o":          Out,
	"enter":      In,
	"inside":     In,
	"exit":       Out,
	"leave":      Out,
	"outside":    Out,
	"upward":     Up,
	"upwards":    Up,
	"climb":      Up,
	"downward":   Down,
	"downwards":  Down,
	"north-east": Northeast,
	"north-west": Northwest,
	"south-east": Southeast,
	"south-west": Southwest,
}

// relativeSteps maps relative terms to clockwise compass-ring steps from the
// player's last heading.
var relativeSteps = map[string]int{
	"left":      -2,
	"right":     2,
	"forward":   0,
	"forwards":  0,
	"ahead":     0,
	"straight":  0,
	"back":      4,
	"backward":  4,
	"backwards": 4,
}

// Normalizer classifies free-form movement input into a canonical direction
// or an ambiguity/unknown/generation outcome. It holds no state; the last
// heading is supplied by the caller per request.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize resolves raw input against the optional last heading and the
// location's exit context.
//
// Resolution order: exact canonical token, known shortcut or abbreviation,
// single-typo correction, named exit or landmark alias, relative term
// rotated from the last heading.
func (n *Normalizer) Normalize(raw string, lastHeading *Direction, exits ExitContext) Resolution {
	input := strings.ToLower(strings.TrimSpace(raw))
	if input == "" {
		return Resolution{
			Outcome:       OutcomeUnknown,
			Clarification: "Which way would you like to go?",
		}
	}

	// Multi-word inputs like "go north" reduce to their last word.
	if fields := strings.Fields(input); len(fields) > 1 {
		switch fields[0] {
		case "go", "head", "move", "walk", "run", "travel":
			input = strings.Join(fields[1:], " ")
		}
	}

	if d, ok := Parse(input); ok {
		return n.classifyResolved(d, exits)
	}

	if d, ok := shortcuts[input]; ok {
		return n.classifyResolved(d, exits)
	}

	if d, ok := correctTypo(input); ok {
		return n.classifyResolved(d, exits)
	}

	if d, ok := exits.NamedExits[input]; ok && d.IsCanonical() {
		return n.classifyResolved(d, exits)
	}

	if steps, ok := relativeSteps[input]; ok {
		return n.resolveRelative(input, steps, lastHeading, exits)
	}

	return Resolution{
		Outcome:       OutcomeUnknown,
		Clarification: fmt.Sprintf("I don't recognize %q as a direction. Try one of the exits, or a compass direction like \"north\".", raw),
	}
}

func (n *Normalizer) classifyResolved(d Direction, exits ExitContext) Resolution {
	if exits.hasExit(d) {
		return Resolution{Outcome: OutcomeOK, Direction: d}
	}
	return Resolution{
		Outcome:       OutcomeGenerate,
		Direction:     d,
		Clarification: fmt.Sprintf("There is no path %s yet.", d),
	}
}

func (n *Normalizer) resolveRelative(term string, steps int, lastHeading *Direction, exits ExitContext) Resolution {
	if lastHeading == nil {
		return Resolution{
			Outcome:       OutcomeAmbiguous,
			Clarification: fmt.Sprintf("%q depends on which way you were last heading, and I don't know that yet. Try a compass direction.", term),
		}
	}
	heading := *lastHeading
	if !heading.IsCompass() {
		return Resolution{
			Outcome:       OutcomeAmbiguous,
			Clarification: fmt.Sprintf("You were last heading %s, so %q doesn't point anywhere. Try a compass direction.", heading, term),
		}
	}
	resolved, _ := rotate(heading, steps)
	return n.classifyResolved(resolved, exits)
}

// correctTypo matches input against canonical tokens within a single edit
// (insertion, deletion, or substitution). Inputs shorter than four runes are
// left alone so one-letter shortcuts never collide with corrections.
func correctTypo(input string) (Direction, bool) {
	if len(input) < 4 {
		return "", false
	}
	var match Direction
	for _, d := range Canonical {
		if withinOneEdit(input, string(d)) {
			if match != "" && match != d {
				// Two candidates within one edit: refuse to guess.
				return "", false
			}
			match = d
		}
	}
	if match == "" {
		return "", false
	}
	return match, true
}

func withinOneEdit(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if la-lb > 1 || lb-la > 1 {
		return false
	}
	// Walk both strings past the first mismatch, consuming one edit.
	i, j, edits := 0, 0, 0
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		switch {
		case la == lb:
			i++
			j++
		case la > lb:
			i++
		default:
			j++
		}
	}
	edits += (la - i) + (lb - j)
	return edits <= 1
}
