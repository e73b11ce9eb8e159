package model

import "time"

const (
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
	RoleUser      = "User"
)

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Points      int64      `json:"points,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type WalletTransaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Points    int64     `json:"points"`
	Reason    string    `json:"reason,omitempty"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
