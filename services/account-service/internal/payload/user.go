package payload

type UserResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// UpdateProfileRequest lists the fields to change. Omitted fields keep their value.
type UpdateProfileRequest struct {
	Username        *string `json:"username"         validate:"omitempty,notblank,max=64"`
	Email           *string `json:"email"            validate:"omitempty,email"`
	Password        *string `json:"password"         validate:"omitempty"`
	CurrentPassword *string `json:"current_password" validate:"omitempty"`
}

type UpdateProfileResponse struct {
	Message     string       `json:"message"`
	User        UserResponse `json:"user"`
	ChangeType  string       `json:"change_type"`
	TargetEmail string       `json:"target_email"`
}

type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
