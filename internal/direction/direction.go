package direction

import "strings"

// Direction is one of the twelve canonical movement tokens.
type Direction string

const (
	North     Direction = "north"
	South     Direction = "south"
	East      Direction = "east"
	West      Direction = "west"
	Northeast Direction = "northeast"
	Northwest Direction = "northwest"
	Southeast Direction = "southeast"
	Southwest Direction = "southwest"
	Up        Direction = "up"
	Down      Direction = "down"
	In        Direction = "in"
	Out       Direction = "out"
)

// Canonical lists every canonical direction in declaration order.
var Canonical = []Direction{
	North, South, East, West,
	Northeast, Northwest, Southeast, Southwest,
	Up, Down, In, Out,
}

var opposites = map[Direction]Direction{
	North:     South,
	South:     North,
	East:      West,
	West:      East,
	Northeast: Southwest,
	Southwest: Northeast,
	Northwest: Southeast,
	Southeast: Northwest,
	Up:        Down,
	Down:      Up,
	In:        Out,
	Out:       In,
}

// compassRing orders the eight compass directions clockwise, used for
// resolving relative terms against a known heading.
var compassRing = []Direction{
	North, Northeast, East, Southeast, South, Southwest, West, Northwest,
}

func (d Direction) String() string {
	return string(d)
}

// IsCanonical reports whether d is one of the twelve canonical tokens.
func (d Direction) IsCanonical() bool {
	_, ok := opposites[d]
	return ok
}

// Opposite returns the geometric opposite of d. The zero value is returned
// for non-canonical input.
func (d Direction) Opposite() Direction {
	return opposites[d]
}

// IsCompass reports whether d lies on the horizontal compass ring.
func (d Direction) IsCompass() bool {
	for _, c := range compassRing {
		if c == d {
			return true
		}
	}
	return false
}

// Parse maps a lowercase token to a canonical direction.
func Parse(token string) (Direction, bool) {
	d := Direction(strings.ToLower(strings.TrimSpace(token)))
	if d.IsCanonical() {
		return d, true
	}
	return "", false
}

// rotate walks the compass ring from d by the given number of clockwise
// steps (45 degrees each). Non-compass directions have no rotation.
func rotate(d Direction, steps int) (Direction, bool) {
	for i, c := range compassRing {
		if c == d {
			n := len(compassRing)
			return compassRing[((i+steps)%n+n)%n], true
		}
	}
	return "", false
}
