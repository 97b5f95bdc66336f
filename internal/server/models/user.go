package models

import "time"

// UserProfile is the one record kept per user.
type UserProfile struct {
	UserID    string    `dynamodbav:"user_id"`
	Email     string    `dynamodbav:"email"`
	FirstName string    `dynamodbav:"first_name"`
	LastName  string    `dynamodbav:"last_name"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// ProfileUpdate is the closed set of fields a profile update may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil
}

// Apply merges the update into p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
}
