package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/models"
)

type FeeStructureInput struct {
	FeeCategoryID    uint    `json:"feeCategoryId" binding:"required"`
	AcademicYear     string  `json:"academicYear" binding:"required"`
	Grade            string  `json:"grade" binding:"required"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	PaymentFrequency string  `json:"paymentFrequency"`

	LateFeeType       string  `json:"lateFeeType"`
	LateFeeAmount     float64 `json:"lateFeeAmount"`
	LateFeePercentage float64 `json:"lateFeePercentage"`
	LateFeeMax        float64 `json:"lateFeeMax"`
	LateFeeGraceDays  int     `json:"lateFeeGraceDays"`
}

// ListFeeStructuresHandler lists the price list, filterable by year, grade
// and category.
func ListFeeStructuresHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.FeeStructure{}).Where("school_id = ?", school)
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("academic_year = ?", year)
	}
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("grade = ?", grade)
	}
	if category := c.Query("fee_category_id"); category != "" {
		query = query.Where("fee_category_id = ?", category)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count fee structures"})
		return
	}

	var structures []models.FeeStructure
	if err := query.Scopes(Paginate(c)).Preload("FeeCategory").Order("grade, academic_year").Find(&structures).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch fee structures"})
		return
	}
	if structures == nil {
		structures = make([]models.FeeStructure, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, structures, totalRows))
}

// CreateFeeStructureHandler prices a category for one year and grade.
func CreateFeeStructureHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input FeeStructureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if input.LateFeeType != "" && input.LateFeeType != models.LateFeeFixed && input.LateFeeType != models.LateFeePercentage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lateFeeType must be fixed or percentage"})
		return
	}

	var category models.FeeCategory
	if err := config.DB.Where("school_id = ?", school).First(&category, input.FeeCategoryID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fee category not found"})
		return
	}

	frequency := input.PaymentFrequency
	if frequency == "" {
		frequency = "annual"
	}

	structure := models.FeeStructure{
		SchoolID:          school,
		FeeCategoryID:     input.FeeCategoryID,
		AcademicYear:      input.AcademicYear,
		Grade:             input.Grade,
		Amount:            input.Amount,
		PaymentFrequency:  frequency,
		LateFeeType:       input.LateFeeType,
		LateFeeAmount:     input.LateFeeAmount,
		LateFeePercentage: input.LateFeePercentage,
		LateFeeMax:        input.LateFeeMax,
		LateFeeGraceDays:  input.LateFeeGraceDays,
	}
	if err := config.DB.Create(&structure).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create fee structure"})
		return
	}

	c.JSON(http.StatusCreated, structure)
}

// structureIsBilled reports whether any invoice item references the
// structure. Billed structures are frozen so historical invoices keep their
// meaning.
func structureIsBilled(id uint) (bool, error) {
	var items int64
	err := config.DB.Model(&models.InvoiceItem{}).Where("fee_structure_id = ?", id).Count(&items).Error
	return items > 0, err
}

// UpdateFeeStructureHandler edits a structure that has not been billed yet.
func UpdateFeeStructureHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var input FeeStructureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var structure models.FeeStructure
	if err := config.DB.Where("school_id = ?", school).First(&structure, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fee structure not found"})
		return
	}

	billed, err := structureIsBilled(structure.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check invoices"})
		return
	}
	if billed {
		c.JSON(http.StatusConflict, gin.H{"error": "Fee structure has been invoiced and can no longer be modified"})
		return
	}

	structure.FeeCategoryID = input.FeeCategoryID
	structure.AcademicYear = input.AcademicYear
	structure.Grade = input.Grade
	structure.Amount = input.Amount
	if input.PaymentFrequency != "" {
		structure.PaymentFrequency = input.PaymentFrequency
	}
	structure.LateFeeType = input.LateFeeType
	structure.LateFeeAmount = input.LateFeeAmount
	structure.LateFeePercentage = input.LateFeePercentage
	structure.LateFeeMax = input.LateFeeMax
	structure.LateFeeGraceDays = input.LateFeeGraceDays

	if err := config.DB.Save(&structure).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fee structure"})
		return
	}
	c.JSON(http.StatusOK, structure)
}

// DeleteFeeStructureHandler removes an unbilled structure.
func DeleteFeeStructureHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	billed, err := structureIsBilled(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check invoices"})
		return
	}
	if billed {
		c.JSON(http.StatusConflict, gin.H{"error": "Fee structure has been invoiced and cannot be deleted"})
		return
	}

	result := config.DB.Where("school_id = ?", school).Delete(&models.FeeStructure{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete fee structure"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fee structure not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee structure deleted"})
}
