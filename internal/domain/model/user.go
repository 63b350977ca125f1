package model

// Registration is the payload for creating a new account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserProfile mirrors the account fields served by GET /auth/me.
type UserProfile struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// UserSettings holds the account preferences updated via PUT /auth/settings.
type UserSettings struct {
	EmailNotifications bool
	PaymentReminders   bool
}
