package domain

type PlacementKind string

const (
	PlacedRoster   PlacementKind = "ROSTER"
	PlacedWaitlist PlacementKind = "WAITLIST"
)

// Placement is the structured outcome of an admission attempt. The
// presentation layer renders it; the core never formats user-facing text.
type Placement struct {
	Kind PlacementKind
	// Position is the waitlist position, set only for PlacedWaitlist.
	Position int
}

// OpenResult reports what happened when a session opened. AutoAdmitted
// users already received an individual notification and must be excluded
// from any broad "session opened" broadcast.
type OpenResult struct {
	AutoAdmitted []UserID
}
