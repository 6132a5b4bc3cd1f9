package event

// Kind is the normalized lifecycle transition carried by a webhook delivery.
type Kind string

const (
	// PledgeCreated adds or refreshes a patron.
	PledgeCreated Kind = "pledge_created"
	// PledgeDeleted removes a patron.
	PledgeDeleted Kind = "pledge_deleted"
	// Ignored is a recognized delivery that requires no action. The caller
	// acknowledges it and moves on.
	Ignored Kind = "ignored"
)

// PatronEvent is the canonical form of one webhook delivery. It is immutable
// once built and discarded after the reconciler consumes it.
type PatronEvent struct {
	Kind     Kind
	Username string
	UserID   string
	FullName string
	Raw      []byte
}
