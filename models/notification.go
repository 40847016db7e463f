package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is the in-app delivery channel: a row addressed to the
// guardian account, surfaced by the notification bell in the web client.
type Notification struct {
	gorm.Model
	SchoolID    uint       `json:"schoolId" gorm:"not null;index"`
	UserID      uint       `json:"userId" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"not null"`
	Message     string     `json:"message" gorm:"not null"`
	Type        string     `json:"type" gorm:"index"`
	RelatedType string     `json:"relatedType"`
	RelatedID   uint       `json:"relatedId"`
	IsRead      bool       `json:"isRead" gorm:"default:false;index"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func (Notification) TableName() string { return "notifications" }
