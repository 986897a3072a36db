package user

// Input is the raw, possibly partial payload a User is built from.
// A nil field was not supplied.
type Input struct {
	Name     *string `json:"name" doc:"Name"`
	Email    *string `json:"email" validate:"required" doc:"Email"`
	Password *string `json:"password" validate:"required" doc:"Password"`
}
