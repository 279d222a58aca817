package model

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents the business entity owning one or more agents
type Organization struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	OrgID       string         `json:"org_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Website     string         `json:"website" gorm:"type:varchar(255)"`
	Industry    string         `json:"industry" gorm:"type:varchar(100)"`
	Description string         `json:"description" gorm:"type:text"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"` // Reference to the session user who created this organization
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Agents []Agent `json:"agents,omitempty" gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}
