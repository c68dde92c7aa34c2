package types

// UserFilter narrows the user list
type UserFilter struct {
	Role     *Role
	IsActive *bool
	// Search matches username, email and full name
	Search string
	Offset int
	// Limit of zero reads every matching user
	Limit int
}
