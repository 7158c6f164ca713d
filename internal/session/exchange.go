package session

import "time"

// File is a noon report attached to a session.
type File struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Sheet   string    `json:"sheet,omitempty"`
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	AddedAt time.Time `json:"added_at"`
}

// Exchange is one question and the answer it received.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Model    string    `json:"model,omitempty"`
	Tokens   int       `json:"tokens,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}
