package entity

import "time"

// User is an account row in the `users` table plus the ids of the campaigns
// it created, oldest first.
type User struct {
	ID           string    `db:"id" json:"_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Country      string    `db:"country" json:"country"`
	CapitalCity  string    `db:"capital_city" json:"capitalCity"`
	PhoneNumber  string    `db:"phone_number" json:"phoneNumber"`
	Campaigns    []string  `db:"-" json:"campaigns"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Public returns a copy of u that is safe to serialize: the hash is cleared
// and Campaigns is never null.
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	c.Campaigns = append([]string{}, u.Campaigns...)
	return &c
}
