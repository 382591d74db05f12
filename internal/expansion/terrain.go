package expansion

import (
	"realm-server/internal/direction"
	"realm-server/internal/events"
)

// terrainCandidates orders the directions each terrain prefers to grow
// toward. Vertical and in/out movement only appears where it reads
// naturally.
var terrainCandidates = map[events.Terrain][]direction.Direction{
	events.TerrainForest: {
		direction.North, direction.East, direction.West, direction.South,
		direction.Northeast, direction.Northwest,
	},
	events.TerrainCavern: {
		direction.Down, direction.North, direction.East, direction.West,
		direction.In, direction.Out,
	},
	events.TerrainCoast: {
		direction.North, direction.South, direction.East, direction.West,
	},
	events.TerrainRuins: {
		direction.North, direction.East, direction.South, direction.West,
		direction.In, direction.Down,
	},
	events.TerrainPlains: {
		direction.North, direction.Northeast, direction.East, direction.Southeast,
		direction.South, direction.Southwest, direction.West, direction.Northwest,
	},
}

// placeholderNames titles an unexplored location per terrain.
var placeholderNames = map[events.Terrain]string{
	events.TerrainForest: "Unexplored Forest",
	events.TerrainCavern: "Unexplored Cavern",
	events.TerrainCoast:  "Unexplored Shore",
	events.TerrainRuins:  "Unexplored Ruins",
	events.TerrainPlains: "Unexplored Plains",
}

// baselineDescriptions is the fallback prose used when generation fails or
// times out.
var baselineDescriptions = map[events.Terrain]string{
	events.TerrainForest: "Dense trees crowd in on every side, their canopy swallowing most of the light.",
	events.TerrainCavern: "Rough stone walls glisten with moisture, and the air carries a mineral chill.",
	events.TerrainCoast:  "Waves break somewhere nearby, and the wind tastes of salt.",
	events.TerrainRuins:  "Broken masonry and toppled columns hint at whatever once stood here.",
	events.TerrainPlains: "Open grassland rolls toward the horizon in every direction.",
}
