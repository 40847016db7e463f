package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/models"
)

type FeeCategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func categoryCacheKey(schoolID uint) string {
	return fmt.Sprintf("fee_categories:school:%d", schoolID)
}

func invalidateCategoryCache(schoolID uint) {
	if config.RDB == nil {
		return
	}
	if err := config.RDB.Del(config.Ctx, categoryCacheKey(schoolID)).Err(); err != nil {
		slog.Warn("Failed to invalidate fee category cache", "school_id", schoolID, "error", err)
	}
}

// ListFeeCategoriesHandler returns the category catalog for one school.
// The catalog changes rarely and is read on every billing screen, so it is
// cached in Redis for five minutes when Redis is configured.
func ListFeeCategoriesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	if config.RDB != nil {
		if cached, err := config.RDB.Get(config.Ctx, categoryCacheKey(school)).Result(); err == nil {
			var categories []models.FeeCategory
			if json.Unmarshal([]byte(cached), &categories) == nil {
				c.JSON(http.StatusOK, gin.H{"data": categories, "cached": true})
				return
			}
		}
	}

	var categories []models.FeeCategory
	if err := config.DB.Where("school_id = ?", school).Order("name").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch fee categories"})
		return
	}
	if categories == nil {
		categories = make([]models.FeeCategory, 0)
	}

	if config.RDB != nil {
		if payload, err := json.Marshal(categories); err == nil {
			if err := config.RDB.Set(config.Ctx, categoryCacheKey(school), payload, 5*time.Minute).Err(); err != nil {
				slog.Warn("Failed to cache fee categories", "school_id", school, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// CreateFeeCategoryHandler adds a catalog entry. Names are unique per school.
func CreateFeeCategoryHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input FeeCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	category := models.FeeCategory{
		SchoolID:    school,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := config.DB.Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A fee category with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create fee category"})
		return
	}

	invalidateCategoryCache(school)
	c.JSON(http.StatusCreated, category)
}

// UpdateFeeCategoryHandler renames or re-describes a catalog entry.
func UpdateFeeCategoryHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var input FeeCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var category models.FeeCategory
	if err := config.DB.Where("school_id = ?", school).First(&category, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fee category not found"})
		return
	}

	category.Name = input.Name
	category.Description = input.Description
	if err := config.DB.Save(&category).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A fee category with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fee category"})
		return
	}

	invalidateCategoryCache(school)
	c.JSON(http.StatusOK, category)
}

// DeleteFeeCategoryHandler removes a catalog entry that is not priced yet.
func DeleteFeeCategoryHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var structures int64
	if err := config.DB.Model(&models.FeeStructure{}).Where("fee_category_id = ?", id).Count(&structures).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check fee structures"})
		return
	}
	if structures > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Fee category is referenced by fee structures and cannot be deleted"})
		return
	}

	result := config.DB.Where("school_id = ?", school).Delete(&models.FeeCategory{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete fee category"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fee category not found"})
		return
	}

	invalidateCategoryCache(school)
	c.JSON(http.StatusOK, gin.H{"message": "Fee category deleted"})
}
