package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

// AssignFeesInput selects students either explicitly or by roster filter.
// When ApplyToAll is set the Grade/Section filters narrow the whole active
// roster; otherwise StudentIDs must be provided.
type AssignFeesInput struct {
	FeeStructureIDs []uint `json:"feeStructureIds" binding:"required,min=1"`
	StudentIDs      []uint `json:"studentIds"`
	ApplyToAll      bool   `json:"applyToAll"`
	Grade           string `json:"grade"`
	Section         string `json:"section"`

	DiscountPercentage float64  `json:"discountPercentage"`
	DiscountAmount     float64  `json:"discountAmount"`
	DiscountReason     string   `json:"discountReason"`
	CustomAmount       *float64 `json:"customAmount"`
	OverwriteExisting  bool     `json:"overwriteExisting"`
}

// AssignError reports one student the batch could not process.
type AssignError struct {
	StudentID uint   `json:"studentId"`
	Error     string `json:"error"`
}

// AssignFeesHandler bulk-binds fee structures to students. The batch keeps
// going past individual failures: one bad student never rolls back the other
// nine.
func AssignFeesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input AssignFeesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if !input.ApplyToAll && len(input.StudentIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide studentIds or set applyToAll"})
		return
	}
	if input.DiscountPercentage < 0 || input.DiscountPercentage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discountPercentage must be between 0 and 100"})
		return
	}

	var structures []models.FeeStructure
	if err := config.DB.Where("school_id = ? AND id IN ?", school, input.FeeStructureIDs).Find(&structures).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch fee structures"})
		return
	}
	if len(structures) != len(input.FeeStructureIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more fee structures were not found"})
		return
	}

	students, err := resolveAssignTargets(school, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve students"})
		return
	}
	if len(students) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No matching students found"})
		return
	}

	assigned, updated, skipped := 0, 0, 0
	var failures []AssignError

	for _, student := range students {
		err := config.DB.Transaction(func(tx *gorm.DB) error {
			a, u, s, err := assignStudent(tx, student, structures, input)
			assigned += a
			updated += u
			skipped += s
			return err
		})
		if err != nil {
			slog.Warn("Fee assignment failed for student", "student_id", student.ID, "error", err)
			failures = append(failures, AssignError{StudentID: student.ID, Error: err.Error()})
		}
	}

	if failures == nil {
		failures = make([]AssignError, 0)
	}
	c.JSON(http.StatusCreated, gin.H{
		"studentsProcessed": len(students),
		"assigned":          assigned,
		"updated":           updated,
		"skipped":           skipped,
		"errors":            failures,
	})
}

func resolveAssignTargets(school uint, input AssignFeesInput) ([]models.Student, error) {
	query := config.DB.Where("school_id = ? AND status = ?", school, "active")
	if input.ApplyToAll {
		if input.Grade != "" {
			query = query.Where("grade = ?", input.Grade)
		}
		if input.Section != "" {
			query = query.Where("section = ?", input.Section)
		}
	} else {
		query = query.Where("id IN ?", input.StudentIDs)
	}

	var students []models.Student
	err := query.Find(&students).Error
	return students, err
}

// assignStudent creates or refreshes the assignment rows for one student
// inside the caller's transaction.
func assignStudent(tx *gorm.DB, student models.Student, structures []models.FeeStructure, input AssignFeesInput) (assigned, updated, skipped int, err error) {
	for _, structure := range structures {
		if structure.Grade != "" && structure.Grade != "all" && structure.Grade != student.Grade {
			return assigned, updated, skipped, fmt.Errorf("student %s is in grade %s but structure %d targets grade %s",
				student.FullName(), student.Grade, structure.ID, structure.Grade)
		}

		var existing models.StudentFee
		findErr := tx.Where("student_id = ? AND fee_structure_id = ?", student.ID, structure.ID).First(&existing).Error

		switch {
		case findErr == nil && !input.OverwriteExisting:
			skipped++
		case findErr == nil:
			existing.DiscountPercentage = input.DiscountPercentage
			existing.DiscountAmount = input.DiscountAmount
			existing.DiscountReason = input.DiscountReason
			existing.CustomAmount = input.CustomAmount
			existing.IsActive = true
			if err := tx.Save(&existing).Error; err != nil {
				return assigned, updated, skipped, err
			}
			updated++
		default:
			assignment := models.StudentFee{
				StudentID:          student.ID,
				FeeStructureID:     structure.ID,
				DiscountPercentage: input.DiscountPercentage,
				DiscountAmount:     input.DiscountAmount,
				DiscountReason:     input.DiscountReason,
				CustomAmount:       input.CustomAmount,
				IsActive:           true,
				AssignedAt:         time.Now(),
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return assigned, updated, skipped, err
			}
			assigned++
		}
	}
	return assigned, updated, skipped, nil
}

// ListAssignmentsHandler lists assignments across the school, filterable by
// student, grade and academic year.
func ListAssignmentsHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.StudentFee{}).
		Joins("JOIN students ON students.id = student_fees.student_id").
		Joins("JOIN fee_structures ON fee_structures.id = student_fees.fee_structure_id").
		Where("students.school_id = ? AND student_fees.is_active = ?", school, true)
	if student := c.Query("student_id"); student != "" {
		query = query.Where("student_fees.student_id = ?", student)
	}
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("students.grade = ?", grade)
	}
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("fee_structures.academic_year = ?", year)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count assignments"})
		return
	}

	var assignments []models.StudentFee
	if err := query.Scopes(Paginate(c)).
		Preload("Student").Preload("FeeStructure.FeeCategory").
		Order("student_fees.id desc").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch assignments"})
		return
	}
	if assignments == nil {
		assignments = make([]models.StudentFee, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, assignments, totalRows))
}

// ListStudentFeesHandler shows the active assignments of one student with
// the priced structures preloaded.
func ListStudentFeesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var student models.Student
	if err := config.DB.Where("school_id = ?", school).First(&student, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var assignments []models.StudentFee
	if err := config.DB.Where("student_id = ? AND is_active = ?", id, true).
		Preload("FeeStructure.FeeCategory").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch assignments"})
		return
	}
	if assignments == nil {
		assignments = make([]models.StudentFee, 0)
	}
	c.JSON(http.StatusOK, gin.H{"student": student, "assignments": assignments})
}

// RemoveStudentFeeHandler deactivates one assignment; history is kept for
// invoices already generated from it.
func RemoveStudentFeeHandler(c *gin.Context) {
	if _, ok := schoolID(c); !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	result := config.DB.Model(&models.StudentFee{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove assignment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment removed"})
}
