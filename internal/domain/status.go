package domain

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPlaying  Status = "playing"
	StatusPlayed   Status = "played"
	StatusSkipped  Status = "skipped"
	StatusRemoved  Status = "removed"
)

var statuses = []Status{
	StatusPending, StatusApproved, StatusRejected, StatusPlaying, StatusPlayed, StatusSkipped, StatusRemoved,
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusPlaying, StatusRemoved},
	StatusApproved: {StatusRejected, StatusPlaying},
	StatusPlaying:  {StatusPlayed, StatusSkipped},
}

// CanTransition reports whether an item may move from one status to another.
// pending -> playing covers promotion at venues that do not moderate requests.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sources lists the statuses an item may leave to reach to.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range statuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Terminal statuses release the dedup entry for the track.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusPlayed, StatusSkipped, StatusRemoved:
		return true
	}
	return false
}

// Refundable statuses return the charged points to the requester.
func (s Status) Refundable() bool {
	return s == StatusRejected || s == StatusRemoved
}
