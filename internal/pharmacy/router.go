package pharmacy

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

// Actor is the authenticated identity threaded through every engine
// call. The engine trusts it as given by the identity collaborator.
type Actor struct {
	UserID int64
	Role   string
}

// SubmitInput is a purchase/request intent from a patient.
type SubmitInput struct {
	MedicineID int64
	Quantity   int64
	Notes      string
}

// Engine is the medicine request and fulfillment engine: it classifies
// incoming intents, drives the order store and catalog through the
// correct transaction shape, and runs the approval workflow.
type Engine struct {
	db          *gorm.DB
	catalog     *Catalog
	eligibility *EligibilityChecker
	orders      *OrderStore
	dispatcher  *Dispatcher
}

func NewEngine(db *gorm.DB, redisClient *redis.Client, dispatcher *Dispatcher) *Engine {
	return &Engine{
		db:          db,
		catalog:     NewCatalog(db, redisClient),
		eligibility: NewEligibilityChecker(db),
		orders:      NewOrderStore(db),
		dispatcher:  dispatcher,
	}
}

func (e *Engine) Catalog() *Catalog   { return e.catalog }
func (e *Engine) Orders() *OrderStore { return e.orders }

// SubmitRequest routes a patient intent: instant purchase for ungated
// medicines (stock decremented in the creating transaction), pending
// order for gated ones (stock untouched until approval).
func (e *Engine) SubmitRequest(ctx context.Context, actor Actor, in SubmitInput) (*models.Order, error) {
	med, err := e.catalog.GetMedicine(ctx, in.MedicineID)
	if err != nil {
		return nil, err
	}
	if !med.IsActive {
		return nil, failf(KindNotFound, "medicine %d not found", in.MedicineID)
	}

	if in.Quantity < 1 {
		return nil, failf(KindInvalidQuantity, "quantity must be at least 1")
	}
	// Courtesy bound only; the atomic decrement stays authoritative.
	if in.Quantity > med.StockQuantity {
		return nil, failf(KindInvalidQuantity, "quantity %d exceeds available stock %d", in.Quantity, med.StockQuantity)
	}

	total, err := lineTotal(med.UnitPrice, in.Quantity)
	if err != nil {
		return nil, unexpected("invalid unit price on medicine", err)
	}

	if med.RequiresApproval {
		return e.submitGated(ctx, actor, in, med, total)
	}
	return e.submitInstant(ctx, actor, in, med, total)
}

func (e *Engine) submitInstant(ctx context.Context, actor Actor, in SubmitInput, med *models.Medicine, total string) (*models.Order, error) {
	now := time.Now()
	order := &models.Order{
		PatientID:           actor.UserID,
		MedicineID:          med.ID,
		Quantity:            in.Quantity,
		UnitPrice:           med.UnitPrice,
		TotalAmount:         total,
		Status:              string(StatusAutoApproved),
		PatientNotes:        optionalText(in.Notes),
		RequiresAppointment: false,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := e.catalog.TryDecrementStock(ctx, tx, med.ID, in.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return failf(KindInsufficientStock, "insufficient stock for medicine %d", med.ID)
		}

		if err := e.orders.Create(ctx, tx, order); err != nil {
			return err
		}

		movement := models.StockMovement{
			MedicineID:   med.ID,
			Quantity:     -in.Quantity,
			MovementType: models.MovementDispense,
			OrderID:      &order.ID,
			CreatedBy:    actor.UserID,
			CreatedAt:    now,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return unexpected("failed to record stock movement", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.catalog.InvalidateMedicineCaches(ctx, med.ID)
	order.Medicine = med
	e.dispatcher.InstantPurchase(ctx, order)
	return order, nil
}

func (e *Engine) submitGated(ctx context.Context, actor Actor, in SubmitInput, med *models.Medicine, total string) (*models.Order, error) {
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		return nil, failf(KindMissingJustification, "notes are required for approval-gated medicines")
	}

	doctorID, err := e.eligibility.ResolveApprover(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		PatientID:           actor.UserID,
		MedicineID:          med.ID,
		DoctorID:            &doctorID,
		Quantity:            in.Quantity,
		UnitPrice:           med.UnitPrice,
		TotalAmount:         total,
		Status:              string(StatusPending),
		PatientNotes:        &notes,
		RequiresAppointment: true,
	}
	if err := e.orders.Create(ctx, e.db, order); err != nil {
		return nil, err
	}

	order.Medicine = med
	e.dispatcher.RequestSubmitted(ctx, order)
	return order, nil
}

func lineTotal(unitPrice string, quantity int64) (string, error) {
	price, err := decimal.NewFromString(unitPrice)
	if err != nil {
		return "", err
	}
	return price.Mul(decimal.NewFromInt(quantity)).StringFixed(2), nil
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
