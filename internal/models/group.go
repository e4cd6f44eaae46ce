package models

// Group is a named set of members sharing expenses.
// All amounts recorded in a group use its Currency.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Lisbon Trip").
	Name string

	// Currency is the ISO-4217 code every expense in the group is recorded in.
	Currency string

	// Members is the list of member user IDs. The creator is always included.
	// Members are added over time and never implicitly removed.
	Members []string

	// CreatedBy is the user ID of the group's creator.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID is a current member.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
