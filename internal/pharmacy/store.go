package pharmacy

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medica-system/internal/database/models"
)

// OrderStore persists order rows. Creation happens once per request;
// every later mutation goes through Transition so the state machine
// guard is enforced at the database.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return unexpected("failed to create order", err)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Medicine").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failf(KindNotFound, "order %d not found", id)
		}
		return nil, unexpected("failed to load order", err)
	}
	return &order, nil
}

// GetForApprover fetches the order under a row lock, scoped to the
// recorded doctor. An order owned by another approver reads as not
// found so existence never leaks.
func (s *OrderStore) GetForApprover(ctx context.Context, tx *gorm.DB, id, approverID int64) (*models.Order, error) {
	q := tx.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	err := q.Where("id = ? AND doctor_id = ?", id, approverID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failf(KindNotFound, "order %d not found", id)
		}
		return nil, unexpected("failed to load order", err)
	}

	var med models.Medicine
	if err := tx.WithContext(ctx).First(&med, order.MedicineID).Error; err == nil {
		order.Medicine = &med
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unexpected("failed to load order medicine", err)
	}
	return &order, nil
}

// GetForFulfillment fetches the order under a row lock without approver
// scoping; fulfillment is a dispensing-side action.
func (s *OrderStore) GetForFulfillment(ctx context.Context, tx *gorm.DB, id int64) (*models.Order, error) {
	q := tx.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := q.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failf(KindNotFound, "order %d not found", id)
		}
		return nil, unexpected("failed to load order", err)
	}

	var med models.Medicine
	if err := tx.WithContext(ctx).First(&med, order.MedicineID).Error; err == nil {
		order.Medicine = &med
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unexpected("failed to load order medicine", err)
	}
	return &order, nil
}

// Transition applies a conditional status update that only succeeds if
// the row is still in from. A zero-rows result on an existing row is a
// lost race, reported as Conflict, never as NotFound.
func (s *OrderStore) Transition(ctx context.Context, tx *gorm.DB, id int64, from, to OrderStatus, fields map[string]interface{}) error {
	if !from.CanTransitionTo(to) {
		return failf(KindInvalidState, "no transition from %s to %s", from, to)
	}

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["status"] = string(to)

	res := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(fields)
	if res.Error != nil {
		return unexpected("failed to transition order", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return unexpected("failed to verify order existence", err)
		}
		if count == 0 {
			return failf(KindNotFound, "order %d not found", id)
		}
		return failf(KindConflict, "order %d is no longer %s", id, from)
	}
	return nil
}

func (s *OrderStore) ListForPatient(ctx context.Context, patientID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Medicine").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, unexpected("failed to list orders", err)
	}
	return orders, nil
}

func (s *OrderStore) ListPendingForDoctor(ctx context.Context, doctorID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Medicine").Preload("Patient").
		Where("doctor_id = ? AND status = ?", doctorID, string(StatusPending)).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, unexpected("failed to list pending orders", err)
	}
	return orders, nil
}
