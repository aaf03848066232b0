package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that can authenticate and manage other accounts.
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username       string    `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	HashedPassword string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role           Role      `json:"role" gorm:"size:20;not null;default:'user';index"`
	IsActive       bool      `json:"is_active" gorm:"not null;default:true"`
	IsSuperuser    bool      `json:"is_superuser" gorm:"not null;default:false"`
	// BootstrapSlot is set only on the bootstrapped admin; the unique index
	// admits a single such row while NULLs stay unconstrained.
	BootstrapSlot *int      `json:"-" gorm:"uniqueIndex"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BootstrapSlotAdmin marks the account created by the bootstrap flow.
const BootstrapSlotAdmin = 1

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
