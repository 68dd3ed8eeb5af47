package database

import (
	"time"

	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

// Seed bootstraps a development database with a minimal set of users,
// medicines and an appointment. It is a no-op when users already exist.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := []models.User{
		{Name: "Alice Patient", Email: "alice@example.com", Role: models.RolePatient, IsActive: true},
		{Name: "Dr. Bob", Email: "bob@example.com", Role: models.RoleDoctor, IsActive: true},
		{Name: "Cara Pharmacist", Email: "cara@example.com", Role: models.RolePharmacist, IsActive: true},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	paracetamolNotes := "Take 1-2 tablets every 4-6 hours after meals"
	amoxicillinNotes := "Complete the full prescribed course"
	medicines := []models.Medicine{
		{
			Name:             "Paracetamol 500mg",
			Category:         models.CategoryMinor,
			UnitPrice:        "2.50",
			StockQuantity:    200,
			RequiresApproval: false,
			Instructions:     &paracetamolNotes,
			IsActive:         true,
		},
		{
			Name:             "Amoxicillin 250mg",
			Category:         models.CategoryMajor,
			UnitPrice:        "8.75",
			StockQuantity:    80,
			RequiresApproval: true,
			Instructions:     &amoxicillinNotes,
			IsActive:         true,
		},
	}
	if err := db.Create(&medicines).Error; err != nil {
		return err
	}

	appointment := models.Appointment{
		PatientID: users[0].ID,
		DoctorID:  users[1].ID,
		Date:      time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		Time:      "09:30",
		Status:    models.AppointmentConfirmed,
	}
	return db.Create(&appointment).Error
}
