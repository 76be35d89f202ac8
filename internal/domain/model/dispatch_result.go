package model

// RecipientError pairs one dispatch recipient with its delivery failure.
type RecipientError struct {
	ChatID int64
	Err    error
}

// DispatchResult aggregates the outcome of one dispatch fan-out. Delivery
// failures are captured here per recipient and never abort the dispatch.
type DispatchResult struct {
	JobID           string
	Audience        string // "admins" | "technicians"
	Attempted       int
	Succeeded       int
	Failed          int
	RecipientErrors []RecipientError
}
