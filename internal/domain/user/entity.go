package user

// User represents a user record as declared by the API schema.
type User struct {
	Name     *string `json:"name"`     // Name is optional; nil means absent
	Email    string  `json:"email"`    // Email is required, any text
	Password string  `json:"password"` // Password is required, stored as given
}

// HasName reports whether the optional name was supplied.
func (u *User) HasName() bool {
	return u != nil && u.Name != nil
}
