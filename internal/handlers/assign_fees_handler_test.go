package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verixence/erp-school-sub008/models"
)

func TestAssignFeesBatchKeepsGoing(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	asha := seedStudent(t, db, 1, "Asha", "5")
	vikram := seedStudent(t, db, 1, "Vikram", "5")
	rohan := seedStudent(t, db, 1, "Rohan", "6") // wrong grade for the structure
	structure := seedStructure(t, db, 1, "2026-27", "5", 1000)

	w := doJSON(t, r, http.MethodPost, "/api/fees/assign-students?school_id=1", gin.H{
		"feeStructureIds": []uint{structure.ID},
		"studentIds":      []uint{asha.ID, vikram.ID, rohan.ID},
	})
	requireStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["assigned"])
	assert.Len(t, body["errors"], 1)

	var count int64
	require.NoError(t, db.Model(&models.StudentFee{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestAssignFeesOverwrite(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	asha := seedStudent(t, db, 1, "Asha", "5")
	structure := seedStructure(t, db, 1, "2026-27", "5", 1000)
	seedAssignment(t, db, asha, structure, nil)

	// Without the flag the existing assignment is left alone.
	w := doJSON(t, r, http.MethodPost, "/api/fees/assign-students?school_id=1", gin.H{
		"feeStructureIds":    []uint{structure.ID},
		"studentIds":         []uint{asha.ID},
		"discountPercentage": 10,
	})
	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["skipped"])

	var assignment models.StudentFee
	require.NoError(t, db.First(&assignment).Error)
	assert.Zero(t, assignment.DiscountPercentage)

	w = doJSON(t, r, http.MethodPost, "/api/fees/assign-students?school_id=1", gin.H{
		"feeStructureIds":    []uint{structure.ID},
		"studentIds":         []uint{asha.ID},
		"discountPercentage": 10,
		"overwriteExisting":  true,
	})
	requireStatus(t, w, http.StatusCreated)
	body = decodeBody(t, w)
	assert.Equal(t, float64(1), body["updated"])

	require.NoError(t, db.First(&assignment, assignment.ID).Error)
	assert.Equal(t, 10.0, assignment.DiscountPercentage)
}

func TestAssignFeesApplyToAllWithGradeFilter(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter()

	seedStudent(t, db, 1, "Asha", "5")
	seedStudent(t, db, 1, "Vikram", "5")
	seedStudent(t, db, 1, "Rohan", "6")
	structure := seedStructure(t, db, 1, "2026-27", "5", 1000)

	w := doJSON(t, r, http.MethodPost, "/api/fees/assign-students?school_id=1", gin.H{
		"feeStructureIds": []uint{structure.ID},
		"applyToAll":      true,
		"grade":           "5",
	})
	requireStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["studentsProcessed"])
	assert.Equal(t, float64(2), body["assigned"])
}

func TestAssignFeesRequiresTargets(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	w := doJSON(t, r, http.MethodPost, "/api/fees/assign-students?school_id=1", gin.H{
		"feeStructureIds": []uint{1},
	})
	requireStatus(t, w, http.StatusBadRequest)
}
