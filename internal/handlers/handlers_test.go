package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB points the global config.DB at a fresh in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.FeeCategory{},
		&models.FeeStructure{},
		&models.StudentFee{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
		&models.PaymentSchedule{},
		&models.ScheduleGrade{},
		&models.ScheduleItem{},
		&models.ScheduleInstallment{},
		&models.ScheduleReminder{},
		&models.PaymentStatusRow{},
		&models.ReminderLog{},
		&models.Notification{},
		&models.Expense{},
		&models.ExpenseClaim{},
	))

	config.DB = db
	config.RDB = nil
	return db
}

func testRouter() *gin.Engine {
	r := gin.New()

	fees := r.Group("/api/fees")
	{
		fees.GET("/categories", ListFeeCategoriesHandler)
		fees.POST("/categories", CreateFeeCategoryHandler)
		fees.PUT("/categories/:id", UpdateFeeCategoryHandler)
		fees.DELETE("/categories/:id", DeleteFeeCategoryHandler)

		fees.GET("/structures", ListFeeStructuresHandler)
		fees.POST("/structures", CreateFeeStructureHandler)
		fees.PUT("/structures/:id", UpdateFeeStructureHandler)
		fees.DELETE("/structures/:id", DeleteFeeStructureHandler)

		fees.POST("/assign-students", AssignFeesHandler)
		fees.GET("/assign-students", ListAssignmentsHandler)
		fees.GET("/students/:id/fees", ListStudentFeesHandler)

		fees.POST("/generate-invoices", GenerateInvoicesHandler)
		fees.GET("/invoices", ListInvoicesHandler)
		fees.GET("/invoices/:id", GetInvoiceHandler)

		fees.POST("/payments", ApplyPaymentHandler)
		fees.GET("/payments", ListPaymentsHandler)

		fees.POST("/payment-schedules", CreatePaymentScheduleHandler)
		fees.GET("/payment-schedules/:id", GetPaymentScheduleHandler)
		fees.PUT("/payment-schedules/:id", UpdatePaymentScheduleHandler)
		fees.DELETE("/payment-schedules/:id", DeletePaymentScheduleHandler)
		fees.POST("/payment-schedules/:id/send-reminder", SendScheduleReminderHandler)

		fees.POST("/expenses", CreateExpenseHandler)
		fees.POST("/claims", CreateExpenseClaimHandler)
		fees.POST("/claims/:id/review", ReviewExpenseClaimHandler)
	}
	r.GET("/api/cron/process-fee-reminders", ProcessFeeRemindersHandler)
	r.GET("/api/reports/transactions", ReportTransactionsHandler)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func seedStudent(t *testing.T, db *gorm.DB, school uint, first, grade string) models.Student {
	t.Helper()
	student := models.Student{
		SchoolID:       school,
		FirstName:      first,
		LastName:       "Test",
		AdmissionNo:    fmt.Sprintf("ADM-%s", first),
		Grade:          grade,
		Status:         "active",
		GuardianUserID: 7000 + uint(len(first)),
		GuardianName:   first + " Guardian",
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedStructure(t *testing.T, db *gorm.DB, school uint, year, grade string, amount float64) models.FeeStructure {
	t.Helper()
	category := models.FeeCategory{SchoolID: school, Name: fmt.Sprintf("Tuition %s %s %.0f", year, grade, amount)}
	require.NoError(t, db.Create(&category).Error)

	structure := models.FeeStructure{
		SchoolID:      school,
		FeeCategoryID: category.ID,
		AcademicYear:  year,
		Grade:         grade,
		Amount:        amount,
	}
	require.NoError(t, db.Create(&structure).Error)
	return structure
}

func seedAssignment(t *testing.T, db *gorm.DB, student models.Student, structure models.FeeStructure, mutate func(*models.StudentFee)) models.StudentFee {
	t.Helper()
	assignment := models.StudentFee{
		StudentID:      student.ID,
		FeeStructureID: structure.ID,
		IsActive:       true,
		AssignedAt:     time.Now(),
	}
	if mutate != nil {
		mutate(&assignment)
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "unexpected status, body: %s", w.Body.String())
}
