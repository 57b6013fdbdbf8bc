package models

// Result of a guarded state transition
// Applied is false when the guard did not hold (duplicate or stale event); that is not an error
type Outcome struct {
	Applied bool
	Status  string
	Reason  string
}
