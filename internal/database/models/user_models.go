package models

import "time"

const (
	RolePatient    = "patient"
	RoleDoctor     = "doctor"
	RolePharmacist = "pharmacist"
	RoleAdmin      = "admin"
)

type User struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"size:255;not null"`
	Email     string  `gorm:"uniqueIndex;not null"`
	Role      string  `gorm:"size:20;not null"`
	Phone     *string `gorm:"size:50"`
	IsActive  bool       `gorm:"default:true"`
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}
