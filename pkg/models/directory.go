package models

// WorkspaceRow is a workspace ("model") record owned by one user.
type WorkspaceRow struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
}

// UserRow is an account of the upstream chat application.
type UserRow struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// GroupRow is a named user group.
type GroupRow struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// GroupMemberRow links a user to a group.
type GroupMemberRow struct {
	GroupID string `json:"group_id" db:"group_id"`
	UserID  string `json:"user_id" db:"user_id"`
}
