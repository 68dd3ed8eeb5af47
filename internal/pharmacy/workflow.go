package pharmacy

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

// Approve locks the order scoped to the approver, re-validates stock
// with the atomic conditional decrement inside the same transaction,
// and moves pending -> approved. Insufficient stock aborts the whole
// transaction and leaves the order pending so a retry after restock can
// succeed.
func (e *Engine) Approve(ctx context.Context, actor Actor, orderID int64, notes string) (*models.Order, error) {
	var order *models.Order

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := e.orders.GetForApprover(ctx, tx, orderID, actor.UserID)
		if err != nil {
			return err
		}
		if OrderStatus(o.Status) != StatusPending {
			return failf(KindInvalidState, "order %d is %s, expected %s", o.ID, o.Status, StatusPending)
		}

		ok, err := e.catalog.TryDecrementStock(ctx, tx, o.MedicineID, o.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return failf(KindInsufficientStock, "insufficient stock for medicine %d", o.MedicineID)
		}

		now := time.Now()
		fields := map[string]interface{}{
			"approved_by": actor.UserID,
			"approved_at": now,
		}
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			fields["reviewer_notes"] = trimmed
		}
		if err := e.orders.Transition(ctx, tx, o.ID, StatusPending, StatusApproved, fields); err != nil {
			return err
		}

		movement := models.StockMovement{
			MedicineID:   o.MedicineID,
			Quantity:     -o.Quantity,
			MovementType: models.MovementApproval,
			OrderID:      &o.ID,
			CreatedBy:    actor.UserID,
			CreatedAt:    now,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return unexpected("failed to record stock movement", err)
		}

		o.Status = string(StatusApproved)
		o.ApprovedBy = &actor.UserID
		o.ApprovedAt = &now
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			o.ReviewerNotes = &trimmed
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.catalog.InvalidateMedicineCaches(ctx, order.MedicineID)
	e.dispatcher.OrderApproved(ctx, order, actor.UserID)
	return order, nil
}

// Reject moves pending -> rejected. No stock effect. Reviewer notes are
// mandatory: the patient must learn why.
func (e *Engine) Reject(ctx context.Context, actor Actor, orderID int64, notes string) (*models.Order, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, failf(KindMissingJustification, "rejection notes are required")
	}

	var order *models.Order

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := e.orders.GetForApprover(ctx, tx, orderID, actor.UserID)
		if err != nil {
			return err
		}
		if OrderStatus(o.Status) != StatusPending {
			return failf(KindInvalidState, "order %d is %s, expected %s", o.ID, o.Status, StatusPending)
		}

		now := time.Now()
		fields := map[string]interface{}{
			"approved_by":    actor.UserID,
			"approved_at":    now,
			"reviewer_notes": notes,
		}
		if err := e.orders.Transition(ctx, tx, o.ID, StatusPending, StatusRejected, fields); err != nil {
			return err
		}

		o.Status = string(StatusRejected)
		o.ApprovedBy = &actor.UserID
		o.ApprovedAt = &now
		o.ReviewerNotes = &notes
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatcher.OrderRejected(ctx, order, actor.UserID)
	return order, nil
}

// Fulfill moves approved -> fulfilled. Stock was already decremented at
// approval, so there is no further stock effect. Empty notes keep the
// reviewer notes already on the order.
func (e *Engine) Fulfill(ctx context.Context, actor Actor, orderID int64, notes string) (*models.Order, error) {
	var order *models.Order

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := e.orders.GetForFulfillment(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if OrderStatus(o.Status) != StatusApproved {
			return failf(KindInvalidState, "order %d is %s, expected %s", o.ID, o.Status, StatusApproved)
		}

		now := time.Now()
		fields := map[string]interface{}{
			"fulfilled_at": now,
		}
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			fields["reviewer_notes"] = trimmed
		}
		if err := e.orders.Transition(ctx, tx, o.ID, StatusApproved, StatusFulfilled, fields); err != nil {
			return err
		}

		o.Status = string(StatusFulfilled)
		o.FulfilledAt = &now
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			o.ReviewerNotes = &trimmed
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatcher.OrderFulfilled(ctx, order, actor.UserID)
	return order, nil
}

// Restock forwards to the catalog; listed here so the engine surface
// covers every stock-touching operation.
func (e *Engine) Restock(ctx context.Context, actor Actor, medicineID, amount int64) (*models.Medicine, error) {
	return e.catalog.Restock(ctx, actor.UserID, medicineID, amount)
}
