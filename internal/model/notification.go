package model

import "time"

// Notification is an in-app notification row (notificacoes).
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}
