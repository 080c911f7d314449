package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCancelled TaskStatus = "CANCELLED"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCancelled, TaskStatusCompleted:
		return true
	}
	return false
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCancelled || s == TaskStatusCompleted
}

// CanTransitionTo reports whether a task in status s may move to next.
// Re-applying the current status is always allowed and changes nothing.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s == TaskStatusPending
}

type Task struct {
	ID          uint           `json:"-" gorm:"primaryKey"`
	UUID        uuid.UUID      `json:"uuid" gorm:"type:uuid;uniqueIndex;not null;<-:create"`
	UserID      uint           `json:"-" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null;size:255"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Status      TaskStatus     `json:"status" gorm:"not null;size:16;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.UUID = id
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return nil
}
