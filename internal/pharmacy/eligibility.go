package pharmacy

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

// EligibilityChecker decides whether a patient may request an
// approval-gated medicine. The clinical-context requirement is a
// precondition: no qualifying appointment, no order row.
type EligibilityChecker struct {
	db *gorm.DB
}

func NewEligibilityChecker(db *gorm.DB) *EligibilityChecker {
	return &EligibilityChecker{db: db}
}

var qualifyingStatuses = []string{
	models.AppointmentScheduled,
	models.AppointmentConfirmed,
	models.AppointmentInProgress,
}

// ResolveApprover returns the doctor of the patient's nearest upcoming
// qualifying appointment. The appointment is only read, never locked or
// consumed.
func (e *EligibilityChecker) ResolveApprover(ctx context.Context, patientID int64) (int64, error) {
	today := time.Now().Format("2006-01-02")

	var appt models.Appointment
	err := e.db.WithContext(ctx).
		Where("patient_id = ? AND status IN ? AND date >= ?", patientID, qualifyingStatuses, today).
		Order("date ASC, time ASC").
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, failf(KindAppointmentRequired, "no upcoming appointment found for patient %d", patientID)
		}
		return 0, unexpected("failed to look up appointments", err)
	}

	return appt.DoctorID, nil
}
