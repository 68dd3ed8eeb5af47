package pharmacy

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

const NotificationCategoryPharmacy = "pharmacy"

// Notifier is the notification sink: fire-and-forget from the engine's
// perspective.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, message, category string) error
}

// AuditLog is the audit sink, same contract as Notifier.
type AuditLog interface {
	Record(ctx context.Context, actorID int64, action, description string) error
}

// DBNotifier stores notifications as rows for the in-app inbox.
type DBNotifier struct {
	db *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier { return &DBNotifier{db: db} }

func (n *DBNotifier) Notify(ctx context.Context, userID int64, title, message, category string) error {
	notification := models.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Category: category,
	}
	return n.db.WithContext(ctx).Create(&notification).Error
}

func (n *DBNotifier) ListForUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	var notifications []models.Notification
	err := n.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications).Error
	if err != nil {
		return nil, unexpected("failed to list notifications", err)
	}
	return notifications, nil
}

type DBAuditLog struct {
	db *gorm.DB
}

func NewDBAuditLog(db *gorm.DB) *DBAuditLog { return &DBAuditLog{db: db} }

func (a *DBAuditLog) Record(ctx context.Context, actorID int64, action, description string) error {
	entry := models.ActivityLog{
		UserID:      actorID,
		Action:      action,
		Description: description,
	}
	return a.db.WithContext(ctx).Create(&entry).Error
}

// Dispatcher fires notifications and audit entries after a transition
// has committed. A failing sink is logged and surfaced to operators via
// the log, never to the caller: the stock/order change already stands.
type Dispatcher struct {
	notifier Notifier
	audit    AuditLog
}

func NewDispatcher(notifier Notifier, audit AuditLog) *Dispatcher {
	return &Dispatcher{notifier: notifier, audit: audit}
}

func (d *Dispatcher) notify(ctx context.Context, userID int64, title, message string) {
	if err := d.notifier.Notify(ctx, userID, title, message, NotificationCategoryPharmacy); err != nil {
		log.Printf("pharmacy: notification to user %d failed: %v", userID, err)
	}
}

func (d *Dispatcher) record(ctx context.Context, actorID int64, action, description string) {
	if err := d.audit.Record(ctx, actorID, action, description); err != nil {
		log.Printf("pharmacy: audit record %q for user %d failed: %v", action, actorID, err)
	}
}

func medicineName(order *models.Order) string {
	if order.Medicine != nil {
		return order.Medicine.Name
	}
	return fmt.Sprintf("medicine %d", order.MedicineID)
}

func (d *Dispatcher) InstantPurchase(ctx context.Context, order *models.Order) {
	name := medicineName(order)
	d.notify(ctx, order.PatientID, "Purchase complete",
		fmt.Sprintf("Your purchase of %d x %s is ready for pickup.", order.Quantity, name))
	d.record(ctx, order.PatientID, "medicine.purchase",
		fmt.Sprintf("purchased %d x %s (order %d)", order.Quantity, name, order.ID))
}

func (d *Dispatcher) RequestSubmitted(ctx context.Context, order *models.Order) {
	name := medicineName(order)
	d.notify(ctx, order.PatientID, "Request submitted",
		fmt.Sprintf("Your request for %d x %s is awaiting doctor approval.", order.Quantity, name))
	if order.DoctorID != nil {
		d.notify(ctx, *order.DoctorID, "Medicine request pending",
			fmt.Sprintf("A request for %d x %s (order %d) needs your review.", order.Quantity, name, order.ID))
	}
	d.record(ctx, order.PatientID, "medicine.request",
		fmt.Sprintf("requested %d x %s (order %d)", order.Quantity, name, order.ID))
}

func (d *Dispatcher) OrderApproved(ctx context.Context, order *models.Order, approverID int64) {
	name := medicineName(order)
	d.notify(ctx, order.PatientID, "Request approved",
		fmt.Sprintf("Your request for %d x %s has been approved.", order.Quantity, name))
	d.record(ctx, approverID, "order.approve",
		fmt.Sprintf("approved order %d (%d x %s)", order.ID, order.Quantity, name))
}

func (d *Dispatcher) OrderRejected(ctx context.Context, order *models.Order, approverID int64) {
	name := medicineName(order)
	d.notify(ctx, order.PatientID, "Request rejected",
		fmt.Sprintf("Your request for %d x %s has been rejected.", order.Quantity, name))
	d.record(ctx, approverID, "order.reject",
		fmt.Sprintf("rejected order %d (%d x %s)", order.ID, order.Quantity, name))
}

func (d *Dispatcher) OrderFulfilled(ctx context.Context, order *models.Order, actorID int64) {
	name := medicineName(order)
	d.notify(ctx, order.PatientID, "Order fulfilled",
		fmt.Sprintf("Your order for %d x %s has been dispensed.", order.Quantity, name))
	d.record(ctx, actorID, "order.fulfill",
		fmt.Sprintf("fulfilled order %d (%d x %s)", order.ID, order.Quantity, name))
}
