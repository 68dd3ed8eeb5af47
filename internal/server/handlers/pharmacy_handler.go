package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medica-system/internal/database/models"
	"medica-system/internal/pharmacy"
	"medica-system/internal/server/middleware"
)

type PharmacyHTTPHandler struct {
	engine        *pharmacy.Engine
	notifications *pharmacy.DBNotifier
}

func NewPharmacyHTTPHandler(engine *pharmacy.Engine, notifications *pharmacy.DBNotifier) *PharmacyHTTPHandler {
	return &PharmacyHTTPHandler{
		engine:        engine,
		notifications: notifications,
	}
}

// Helper functions
func (s *PharmacyHTTPHandler) success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s *PharmacyHTTPHandler) error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

func (s *PharmacyHTTPHandler) failure(c *gin.Context, err error) {
	kind := pharmacy.KindOf(err)
	c.JSON(failureStatus(kind), gin.H{
		"success": false,
		"error":   kind.String(),
		"message": failureMessage(kind, err),
	})
}

func failureStatus(kind pharmacy.FailureKind) int {
	switch kind {
	case pharmacy.KindNotFound:
		return http.StatusNotFound
	case pharmacy.KindInvalidQuantity, pharmacy.KindMissingJustification:
		return http.StatusBadRequest
	case pharmacy.KindAppointmentRequired:
		return http.StatusUnprocessableEntity
	case pharmacy.KindInsufficientStock, pharmacy.KindInvalidState, pharmacy.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// failureMessage renders each failure kind as an actionable message;
// unexpected errors stay opaque to the client.
func failureMessage(kind pharmacy.FailureKind, err error) string {
	switch kind {
	case pharmacy.KindAppointmentRequired:
		return "This medicine requires doctor approval. Please book an appointment first."
	case pharmacy.KindInsufficientStock:
		return "Insufficient stock. Try a smaller quantity or check back later."
	case pharmacy.KindMissingJustification:
		return "Please describe why you need this medicine."
	case pharmacy.KindUnexpected:
		return "Something went wrong. Please try again."
	}
	return err.Error()
}

func actorFrom(c *gin.Context) pharmacy.Actor {
	return pharmacy.Actor{
		UserID: c.GetInt64(middleware.ContextUserID),
		Role:   c.GetString(middleware.ContextRole),
	}
}

func parseIDParam(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

// Medicine endpoints

func (s *PharmacyHTTPHandler) ListMedicines(c *gin.Context) {
	meds, err := s.engine.Catalog().ListMedicines(c.Request.Context())
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, meds)
}

func (s *PharmacyHTTPHandler) GetMedicine(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	med, err := s.engine.Catalog().GetMedicine(c.Request.Context(), id)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, med)
}

type restockRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (s *PharmacyHTTPHandler) RestockMedicine(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RolePharmacist && actor.Role != models.RoleAdmin {
		s.error(c, http.StatusForbidden, "Only pharmacists can restock medicines")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	med, err := s.engine.Restock(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, med)
}

// Order endpoints

type submitRequest struct {
	MedicineID int64  `json:"medicine_id" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required"`
	Notes      string `json:"notes"`
}

func (s *PharmacyHTTPHandler) SubmitRequest(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RolePatient {
		s.error(c, http.StatusForbidden, "Only patients can request medicines")
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.engine.SubmitRequest(c.Request.Context(), actor, pharmacy.SubmitInput{
		MedicineID: req.MedicineID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusCreated, order)
}

func (s *PharmacyHTTPHandler) ListOrders(c *gin.Context) {
	actor := actorFrom(c)

	var (
		orders []models.Order
		err    error
	)
	switch actor.Role {
	case models.RoleDoctor:
		orders, err = s.engine.Orders().ListPendingForDoctor(c.Request.Context(), actor.UserID)
	default:
		orders, err = s.engine.Orders().ListForPatient(c.Request.Context(), actor.UserID)
	}
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, orders)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (s *PharmacyHTTPHandler) ApproveOrder(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RoleDoctor {
		s.error(c, http.StatusForbidden, "Only doctors can approve orders")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.engine.Approve(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, order)
}

func (s *PharmacyHTTPHandler) RejectOrder(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RoleDoctor {
		s.error(c, http.StatusForbidden, "Only doctors can reject orders")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.engine.Reject(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, order)
}

func (s *PharmacyHTTPHandler) FulfillOrder(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RolePharmacist && actor.Role != models.RoleAdmin {
		s.error(c, http.StatusForbidden, "Only pharmacists can fulfill orders")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.engine.Fulfill(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, order)
}

// Notification endpoints

func (s *PharmacyHTTPHandler) ListNotifications(c *gin.Context) {
	actor := actorFrom(c)

	notifications, err := s.notifications.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		s.failure(c, err)
		return
	}
	s.success(c, http.StatusOK, notifications)
}
