package users

import "github.com/odyssey-erp/listgrid/internal/grid"

// User is an active user that can own records.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
	Title    string `json:"title"`
}

// Candidate converts the user to a change owner candidate.
func (u User) Candidate() grid.UserCandidate {
	return grid.UserCandidate{ID: u.ID, Name: u.Name, Email: u.Email, PhotoURL: u.PhotoURL, Title: u.Title}
}
