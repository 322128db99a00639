package profileRepository

const (
	queryCreateProfile = `
		INSERT INTO profiles (
			id,
			name,
			email,
			password,
			clinic,
			license_number,
			created_at,
			updated_at
		) VALUES (
			:id,
			:name,
			:email,
			:password,
			:clinic,
			:license_number,
			:created_at,
			:updated_at
		)
	`

	queryGetProfileByID = `
		SELECT
			id,
			name,
			email,
			password,
			clinic,
			license_number,
			created_at,
			updated_at
		FROM profiles
		WHERE id = :id
	`

	queryGetProfileByEmail = `
		SELECT
			id,
			name,
			email,
			password,
			clinic,
			license_number,
			created_at,
			updated_at
		FROM profiles
		WHERE LOWER(email) = LOWER(:email)
	`

	queryUpdateProfile = `
		UPDATE profiles SET
			name = :name,
			email = :email,
			password = :password,
			clinic = :clinic,
			license_number = :license_number,
			updated_at = :updated_at
		WHERE id = :id
	`
)
