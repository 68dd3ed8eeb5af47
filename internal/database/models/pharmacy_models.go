package models

import "time"

const (
	CategoryMinor = "minor"
	CategoryMajor = "major"
)

type Medicine struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	Name             string `gorm:"size:255;not null"`
	Category         string `gorm:"size:20;not null"`
	UnitPrice        string `gorm:"type:varchar(32);not null"`
	StockQuantity    int64  `gorm:"not null"`
	RequiresApproval bool   `gorm:"not null"`
	Instructions     *string `gorm:"type:text"`
	IsActive         bool    `gorm:"default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Order struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	PatientID  int64  `gorm:"index;not null"`
	MedicineID int64  `gorm:"index;not null"`
	DoctorID   *int64 `gorm:"index"`
	Quantity   int64  `gorm:"not null"`

	UnitPrice   string `gorm:"type:varchar(32);not null"`
	TotalAmount string `gorm:"type:varchar(32);not null"`
	Status      string `gorm:"size:20;index;not null"`

	PatientNotes  *string `gorm:"type:text"`
	ReviewerNotes *string `gorm:"type:text"`

	RequiresAppointment bool `gorm:"not null"`
	ApprovedBy          *int64
	ApprovedAt          *time.Time
	FulfilledAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Patient  *User     `gorm:"foreignKey:PatientID"`
	Doctor   *User     `gorm:"foreignKey:DoctorID"`
	Medicine *Medicine `gorm:"foreignKey:MedicineID"`
}

const (
	AppointmentScheduled  = "scheduled"
	AppointmentConfirmed  = "confirmed"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
)

type Appointment struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	PatientID int64  `gorm:"index;not null"`
	DoctorID  int64  `gorm:"index;not null"`
	Date      string `gorm:"size:10;index;not null"`
	Time      string `gorm:"size:8;not null"`
	Status    string `gorm:"size:20;not null"`
	Reason    *string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Patient *User `gorm:"foreignKey:PatientID"`
	Doctor  *User `gorm:"foreignKey:DoctorID"`
}

const (
	MovementDispense = "dispense"
	MovementApproval = "approval"
	MovementRestock  = "restock"
)

// StockMovement records every mutation of a medicine's stock counter.
// Quantity is signed: negative for dispense/approval, positive for restock.
type StockMovement struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	MedicineID   int64  `gorm:"index;not null"`
	Quantity     int64  `gorm:"not null"`
	MovementType string `gorm:"size:20;not null"`
	OrderID      *int64 `gorm:"index"`
	CreatedBy    int64  `gorm:"not null"`
	CreatedAt    time.Time
}
