package event

// PathCompleted is emitted when an actor reaches the last waypoint.
type PathCompleted struct {
	ActorID int32
	X, Y    int32
	Steps   int
}

// PathBlocked is emitted when the next waypoint is occupied and the actor
// drops its route.
type PathBlocked struct {
	ActorID int32
	X, Y    int32 // blocked waypoint
}

// PathNotFound is emitted when planning a route returned no path.
type PathNotFound struct {
	ActorID  int32
	FromX    int32
	FromY    int32
	ToX, ToY int32
}

// MapSaved is emitted after a map snapshot is persisted.
type MapSaved struct {
	Name     string
	Checksum string
}
