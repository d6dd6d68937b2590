package users

import "time"

// User is the authenticated account as the /auth endpoints return it.
// Only the identity fields the client shell renders are kept locally;
// authorization data never leaves the backend.
type User struct {
	ID        string    `json:"id,omitempty"`         // Unique identifier for the user
	Email     string    `json:"email,omitempty"`      // User's email address
	FirstName string    `json:"first_name,omitempty"` // First name of the user
	LastName  string    `json:"last_name,omitempty"`  // Last name of the user
	CreatedAt time.Time `json:"created_at,omitempty"` // Date and time when the user registered
}

// FullName joins first and last name, tolerating either being empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Partial is a piecemeal profile update. Nil fields are left untouched.
type Partial struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Empty reports whether the partial carries no changes at all.
func (p Partial) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil
}

// Merge applies the non-nil fields of p onto a copy of u and returns it.
func (u User) Merge(p Partial) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	return u
}
