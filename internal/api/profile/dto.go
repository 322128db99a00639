package profile

type RegisterRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=120"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Clinic        string `json:"clinic" validate:"omitempty,max=160"`
	LicenseNumber string `json:"license_number" validate:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   int64           `json:"expires_at"`
	Profile     ProfileResponse `json:"profile"`
}

// UpdateProfileRequest only touches the fields that are set. Changing the
// password requires the current one.
type UpdateProfileRequest struct {
	ID            string `json:"-"`
	Name          string `json:"name" validate:"omitempty,min=2,max=120"`
	Email         string `json:"email" validate:"omitempty,email,max=254"`
	Clinic        string `json:"clinic" validate:"omitempty,max=160"`
	LicenseNumber string `json:"license_number" validate:"omitempty,max=64"`
	OldPassword   string `json:"old_password" validate:"required_with=NewPassword"`
	NewPassword   string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type ProfileResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Clinic        string `json:"clinic,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
