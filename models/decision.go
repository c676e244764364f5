package models

// Decision kinds produced by the occupancy resolver.
const (
	DecisionProceed         = "proceed"
	DecisionRequireWaitlist = "require_waitlist"
	DecisionBlocked         = "blocked"
)

// Decision -> the admission outcome for a device: go straight to ordering,
// queue for the table, or stop with a reason.
type Decision struct {
	Kind   string         `json:"kind"`
	Table  *TableSnapshot `json:"table,omitempty"`
	Reason string         `json:"reason,omitempty"`

	// Set only on delivery-radius blocks so the UI can show both numbers.
	DistanceKm float64 `json:"distance_km,omitempty"`
	RadiusKm   float64 `json:"radius_km,omitempty"`
}

func Proceed(table *TableSnapshot) Decision {
	return Decision{Kind: DecisionProceed, Table: table}
}

func RequireWaitlist(table *TableSnapshot) Decision {
	return Decision{Kind: DecisionRequireWaitlist, Table: table}
}

func Blocked(reason string) Decision {
	return Decision{Kind: DecisionBlocked, Reason: reason}
}
