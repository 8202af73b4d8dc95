package models

import "time"

// DefaultProfilePic is shown until a user uploads an avatar.
const DefaultProfilePic = "https://via.placeholder.com/150"

// User represents a user in the system.
// The relationship sets (friends, incoming requests, dismissed suggestions, liked posts)
// are owned by the store and read through the store.Relations / store.Likes contracts.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	ProfilePic   string    `json:"profilePic"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the display-safe projection of a User that is embedded in denormalised reads.
type Profile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

// Profile returns the display projection of u.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, ProfilePic: u.ProfilePic}
}
