package models

import "time"

// DefaultCategory is assigned to notes created or updated without a category.
const DefaultCategory = "Other"

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AccountSummary is the public view of an Account. It never carries the hash.
type AccountSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type LoginResult struct {
	Token string  `json:"token"`
	User  UserRef `json:"user"`
}

// Identity is what a verified bearer token asserts about the caller.
type Identity struct {
	AccountID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerID   string    `json:"ownerId"`
}

type NoteInput struct {
	Title    string  `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	IsPinned *bool   `json:"isPinned"`
}

// NotePatch carries a partial update. Nil fields are left unchanged.
type NotePatch struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	IsPinned *bool   `json:"isPinned"`
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil && p.IsPinned == nil
}

// Apply writes the present fields of p onto n.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.IsPinned != nil {
		n.IsPinned = *p.IsPinned
	}
}

// NoteFilter narrows a listing. Zero value matches everything.
type NoteFilter struct {
	Category string
	Query    string
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}
