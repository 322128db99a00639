package entity

import "time"

type Profile struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Password      string    `db:"password"`
	Clinic        string    `db:"clinic"`
	LicenseNumber string    `db:"license_number"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ProfileLoginData is what the token middleware puts in the request locals.
type ProfileLoginData struct {
	ID    string
	Name  string
	Email string
}
