package models

// Waitlist statuses. Seated and cancelled are terminal.
const (
	WaitlistWaiting   = "waiting"
	WaitlistNotified  = "notified"
	WaitlistSeated    = "seated"
	WaitlistCancelled = "cancelled"
)

// waitlistTransitions is the exhaustive transition table. A missing entry
// means the transition is invalid.
var waitlistTransitions = map[string]map[string]bool{
	WaitlistWaiting: {
		WaitlistWaiting:   true,
		WaitlistNotified:  true,
		WaitlistSeated:    true,
		WaitlistCancelled: true,
	},
	WaitlistNotified: {
		WaitlistNotified:  true,
		WaitlistSeated:    true,
		WaitlistCancelled: true,
	},
	WaitlistSeated:    {WaitlistSeated: true},
	WaitlistCancelled: {WaitlistCancelled: true},
}

// WaitlistTerminal -> true for seated/cancelled.
func WaitlistTerminal(status string) bool {
	return status == WaitlistSeated || status == WaitlistCancelled
}

// CanTransition -> whether a waitlist entry may move from one status to
// another. Staying in the current status always counts as valid.
func CanTransition(from, to string) bool {
	allowed, ok := waitlistTransitions[from]
	if !ok {
		// Unknown local state, trust the server.
		return true
	}
	return allowed[to]
}

// WaitlistEntry -> one party's place in a table's wait queue. Position is
// 1-based and recalculated server-side whenever entries change; the local
// copy is never incremented locally.
type WaitlistEntry struct {
	Token     string `json:"token"`
	TableID   uint   `json:"table_id"`
	Status    string `json:"status"`
	Position  int    `json:"position"`
	GuestName string `json:"guest_name"`
	PartySize int    `json:"party_size"`
}
