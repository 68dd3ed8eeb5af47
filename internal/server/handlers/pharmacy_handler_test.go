package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"medica-system/internal/database"
	"medica-system/internal/database/models"
	"medica-system/internal/pharmacy"
	"medica-system/internal/server/handlers"
	"medica-system/internal/server/middleware"
	"medica-system/internal/utils"
)

var handlerDBCounter int64

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	notifier := pharmacy.NewDBNotifier(db)
	audit := pharmacy.NewDBAuditLog(db)
	engine := pharmacy.NewEngine(db, nil, pharmacy.NewDispatcher(notifier, audit))
	handler := handlers.NewPharmacyHTTPHandler(engine, notifier)

	r := gin.New()
	r.Use(gin.Recovery())

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		protected.GET("/pharmacy/medicines", handler.ListMedicines)
		protected.GET("/pharmacy/medicines/:id", handler.GetMedicine)
		protected.POST("/pharmacy/medicines/:id/restock", handler.RestockMedicine)
		protected.POST("/pharmacy/requests", handler.SubmitRequest)
		protected.GET("/pharmacy/orders", handler.ListOrders)
		protected.POST("/pharmacy/orders/:id/approve", handler.ApproveOrder)
		protected.POST("/pharmacy/orders/:id/reject", handler.RejectOrder)
		protected.POST("/pharmacy/orders/:id/fulfill", handler.FulfillOrder)
		protected.GET("/notifications", handler.ListNotifications)
	}

	return r, db
}

func seedWorld(t *testing.T, db *gorm.DB) (patient, doctor, pharmacist models.User, otc, gated models.Medicine) {
	t.Helper()
	patient = models.User{Name: "Pat", Email: "pat@example.com", Role: models.RolePatient, IsActive: true}
	doctor = models.User{Name: "Dr. Dee", Email: "dee@example.com", Role: models.RoleDoctor, IsActive: true}
	pharmacist = models.User{Name: "Phil", Email: "phil@example.com", Role: models.RolePharmacist, IsActive: true}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&doctor).Error)
	require.NoError(t, db.Create(&pharmacist).Error)

	otc = models.Medicine{Name: "Paracetamol", Category: models.CategoryMinor, UnitPrice: "2.50", StockQuantity: 50, RequiresApproval: false, IsActive: true}
	gated = models.Medicine{Name: "Amoxicillin", Category: models.CategoryMajor, UnitPrice: "8.75", StockQuantity: 30, RequiresApproval: true, IsActive: true}
	require.NoError(t, db.Create(&otc).Error)
	require.NoError(t, db.Create(&gated).Error)

	appt := models.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Date:      time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		Time:      "09:30",
		Status:    models.AppointmentConfirmed,
	}
	require.NoError(t, db.Create(&appt).Error)
	return patient, doctor, pharmacist, otc, gated
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, _, err := utils.GenerateToken(as.ID, as.Role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

func TestSubmitRequest_RequiresAuth(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests", gin.H{"medicine_id": 1, "quantity": 1}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitRequest_InstantPurchaseEndpoint(t *testing.T) {
	r, db := setupRouter(t)
	patient, _, _, otc, _ := seedWorld(t, db)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": otc.ID, "quantity": 2}, &patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool         `json:"success"`
		Data    models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "auto_approved", resp.Data.Status)
	assert.Equal(t, "5.00", resp.Data.TotalAmount)
}

func TestSubmitRequest_RoleEnforced(t *testing.T) {
	r, db := setupRouter(t)
	_, doctor, _, otc, _ := seedWorld(t, db)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": otc.ID, "quantity": 1}, &doctor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitRequest_GatedFailureMapping(t *testing.T) {
	r, db := setupRouter(t)
	_, _, _, _, gated := seedWorld(t, db)

	// A patient without any appointment.
	stranger := models.User{Name: "New Pat", Email: "new@example.com", Role: models.RolePatient, IsActive: true}
	require.NoError(t, db.Create(&stranger).Error)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": gated.ID, "quantity": 1, "notes": "fever"}, &stranger)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "APPOINTMENT_REQUIRED", resp["error"])
}

func TestApproveFlowOverHTTP(t *testing.T) {
	r, db := setupRouter(t)
	patient, doctor, pharmacist, _, gated := seedWorld(t, db)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": gated.ID, "quantity": 3, "notes": "persistent cough"}, &patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orderID := created.Data.ID

	// Another doctor cannot see the order.
	other := models.User{Name: "Dr. Other", Email: "other@example.com", Role: models.RoleDoctor, IsActive: true}
	require.NoError(t, db.Create(&other).Error)
	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/orders/%d/approve", orderID),
		gin.H{"notes": "ok"}, &other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/orders/%d/approve", orderID),
		gin.H{"notes": "ok to dispense"}, &doctor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second approval conflicts.
	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/orders/%d/approve", orderID),
		gin.H{"notes": "ok"}, &doctor)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Patients cannot fulfill.
	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/orders/%d/fulfill", orderID), nil, &patient)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/orders/%d/fulfill", orderID), nil, &pharmacist)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var med models.Medicine
	require.NoError(t, db.First(&med, gated.ID).Error)
	assert.Equal(t, int64(27), med.StockQuantity, "stock decremented once, at approval")
}

func TestRestockEndpoint(t *testing.T) {
	r, db := setupRouter(t)
	patient, _, pharmacist, otc, _ := seedWorld(t, db)

	rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/medicines/%d/restock", otc.ID),
		gin.H{"amount": 10}, &patient)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/pharmacy/medicines/%d/restock", otc.ID),
		gin.H{"amount": 10}, &pharmacist)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var med models.Medicine
	require.NoError(t, db.First(&med, otc.ID).Error)
	assert.Equal(t, int64(60), med.StockQuantity)
}

func TestListOrdersAndNotifications(t *testing.T) {
	r, db := setupRouter(t)
	patient, doctor, _, otc, gated := seedWorld(t, db)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": otc.ID, "quantity": 1}, &patient)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, r, http.MethodPost, "/api/v1/pharmacy/requests",
		gin.H{"medicine_id": gated.ID, "quantity": 1, "notes": "rash"}, &patient)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/pharmacy/orders", nil, &patient)
	require.Equal(t, http.StatusOK, rec.Code)
	var patientOrders struct {
		Data []models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patientOrders))
	assert.Len(t, patientOrders.Data, 2)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/pharmacy/orders", nil, &doctor)
	require.Equal(t, http.StatusOK, rec.Code)
	var doctorOrders struct {
		Data []models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctorOrders))
	require.Len(t, doctorOrders.Data, 1, "doctors see only their pending reviews")
	assert.Equal(t, "pending", doctorOrders.Data[0].Status)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/notifications", nil, &patient)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications struct {
		Data []models.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	assert.NotEmpty(t, notifications.Data)
}
