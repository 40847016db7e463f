package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

func scheduleFixture(t *testing.T, db *gorm.DB) (models.Student, models.FeeStructure) {
	t.Helper()
	asha := seedStudent(t, db, 1, "Asha", "5")
	structure := seedStructure(t, db, 1, "2026-27", "5", 1200)
	return asha, structure
}

func TestCreateScheduleMaterializesStatusRows(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	asha, structure := scheduleFixture(t, db)
	vikram := seedStudent(t, db, 1, "Vikram", "5")
	seedStudent(t, db, 1, "Rohan", "6") // outside the covered grades

	// Asha has a personal discount that must flow into her demand.
	seedAssignment(t, db, asha, structure, func(a *models.StudentFee) {
		a.DiscountPercentage = 25
	})

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
	})
	requireStatus(t, w, http.StatusCreated)

	var rows []models.PaymentStatusRow
	require.NoError(t, db.Order("student_id").Find(&rows).Error)
	require.Len(t, rows, 2)

	byStudent := map[uint]models.PaymentStatusRow{}
	for _, row := range rows {
		byStudent[row.StudentID] = row
	}
	assert.Equal(t, 900.0, byStudent[asha.ID].DemandAmount)
	assert.Equal(t, 1200.0, byStudent[vikram.ID].DemandAmount)
	assert.Equal(t, models.InvoicePending, byStudent[asha.ID].Status)

	var schedule models.PaymentSchedule
	require.NoError(t, db.First(&schedule).Error)
	assert.Equal(t, 2, schedule.TotalStudents)
	assert.Equal(t, 2, schedule.PendingCount)
	assert.Equal(t, 2100.0, schedule.TotalDue)
}

func TestCreateScheduleRejectsMixedInstallments(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	_, structure := scheduleFixture(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":          "Broken Plan",
		"academicYear":  "2026-27",
		"dueDate":       "2026-09-30",
		"isInstallment": true,
		"grades":        []string{"5"},
		"items":         []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
		"installments": []gin.H{
			{"number": 1, "dueDate": "2026-09-30", "percentage": 40},
			{"number": 2, "dueDate": "2026-12-31", "fixedAmount": 600},
		},
	})
	requireStatus(t, w, http.StatusBadRequest)

	var count int64
	require.NoError(t, db.Model(&models.PaymentSchedule{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateScheduleReplacesProvidedChildrenOnly(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	_, structure := scheduleFixture(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
		"reminders": []gin.H{
			{"reminderType": "before_due", "daysBefore": 3},
		},
	})
	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	scheduleID := uint(body["ID"].(float64))

	// Update sends grades but omits reminders: reminders must survive.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":         "Term 1 Fees (revised)",
		"academicYear": "2026-27",
		"dueDate":      "2026-10-15",
		"grades":       []string{"5", "6"},
	})
	requireStatus(t, w, http.StatusOK)

	var reminders []models.ScheduleReminder
	require.NoError(t, db.Where("schedule_id = ?", scheduleID).Find(&reminders).Error)
	assert.Len(t, reminders, 1)

	var grades []models.ScheduleGrade
	require.NoError(t, db.Where("schedule_id = ?", scheduleID).Find(&grades).Error)
	assert.Len(t, grades, 2)

	// An explicit empty collection clears the stored rows.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":         "Term 1 Fees (revised)",
		"academicYear": "2026-27",
		"dueDate":      "2026-10-15",
		"reminders":    []gin.H{},
	})
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, db.Where("schedule_id = ?", scheduleID).Find(&reminders).Error)
	assert.Empty(t, reminders)
}

func TestUpdateScheduleValidatesStoredInstallments(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	_, structure := scheduleFixture(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
	})
	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	scheduleID := uint(body["ID"].(float64))

	// Flipping to an installment plan without sending any installments has
	// no stored rows to fall back on.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":          "Term 1 Fees",
		"academicYear":  "2026-27",
		"dueDate":       "2026-09-30",
		"isInstallment": true,
	})
	requireStatus(t, w, http.StatusBadRequest)

	var schedule models.PaymentSchedule
	require.NoError(t, db.First(&schedule, scheduleID).Error)
	assert.False(t, schedule.IsInstallment)

	// With a valid stored plan the same flip goes through.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":          "Term 1 Fees",
		"academicYear":  "2026-27",
		"dueDate":       "2026-09-30",
		"isInstallment": true,
		"installments": []gin.H{
			{"number": 1, "dueDate": "2026-09-30", "percentage": 50},
			{"number": 2, "dueDate": "2026-12-31", "percentage": 50},
		},
	})
	requireStatus(t, w, http.StatusOK)

	// And a later update omitting the collection revalidates the stored rows.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":          "Term 1 Fees (revised)",
		"academicYear":  "2026-27",
		"dueDate":       "2026-09-30",
		"isInstallment": true,
	})
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, db.First(&schedule, scheduleID).Error)
	assert.True(t, schedule.IsInstallment)
	assert.Equal(t, 2, schedule.InstallmentCount)
}

func TestRematerializationKeepsPaidRows(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	asha, structure := scheduleFixture(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
	})
	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	scheduleID := uint(body["ID"].(float64))

	// Money arrives against the row.
	require.NoError(t, db.Model(&models.PaymentStatusRow{}).
		Where("schedule_id = ? AND student_id = ?", scheduleID, asha.ID).
		Updates(map[string]interface{}{
			"paid_amount": 500.0, "balance_amount": 700.0, "status": models.InvoicePartial,
		}).Error)

	// Re-sending the same coverage re-materializes without clobbering.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
	})
	requireStatus(t, w, http.StatusOK)

	var row models.PaymentStatusRow
	require.NoError(t, db.Where("schedule_id = ? AND student_id = ?", scheduleID, asha.ID).First(&row).Error)
	assert.Equal(t, 500.0, row.PaidAmount)
	assert.Equal(t, 700.0, row.BalanceAmount)
	assert.Equal(t, models.InvoicePartial, row.Status)
}

func TestDeleteScheduleWithPaymentsDeactivates(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	asha, structure := scheduleFixture(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/fees/payment-schedules?school_id=1", gin.H{
		"name":         "Term 1 Fees",
		"academicYear": "2026-27",
		"dueDate":      "2026-09-30",
		"grades":       []string{"5"},
		"items":        []gin.H{{"feeCategoryId": structure.FeeCategoryID}},
	})
	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	scheduleID := uint(body["ID"].(float64))

	require.NoError(t, db.Model(&models.PaymentStatusRow{}).
		Where("schedule_id = ? AND student_id = ?", scheduleID, asha.ID).
		Update("paid_amount", 100).Error)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/fees/payment-schedules/%d?school_id=1", scheduleID), nil)
	requireStatus(t, w, http.StatusOK)

	var schedule models.PaymentSchedule
	require.NoError(t, db.First(&schedule, scheduleID).Error)
	assert.Equal(t, models.ScheduleInactive, schedule.Status)
}
