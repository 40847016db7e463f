package models

import "gorm.io/gorm"

// FeeCategory is a catalog entry ("Tuition", "Transport", "Lab").
type FeeCategory struct {
	gorm.Model
	SchoolID    uint   `json:"schoolId" gorm:"not null;uniqueIndex:uniq_category_name"`
	Name        string `json:"name" gorm:"not null;uniqueIndex:uniq_category_name"`
	Description string `json:"description"`
}

func (FeeCategory) TableName() string { return "fee_categories" }
