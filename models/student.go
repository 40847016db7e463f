package models

import "gorm.io/gorm"

// Student is the roster contract the fee engine consumes. The full student
// record (admissions, documents, family tree) lives in the roster service;
// here we only keep what billing and reminder delivery need.
type Student struct {
	gorm.Model
	SchoolID    uint   `json:"schoolId" gorm:"not null;index"`
	FirstName   string `json:"firstName" gorm:"not null"`
	LastName    string `json:"lastName" gorm:"not null"`
	AdmissionNo string `json:"admissionNo" gorm:"index"`
	Grade       string `json:"grade" gorm:"index"`
	Section     string `json:"section"`
	Status      string `json:"status" gorm:"default:'active';index"`

	// Guardian contact used by the reminder dispatcher.
	GuardianUserID uint   `json:"guardianUserId" gorm:"index"`
	GuardianName   string `json:"guardianName"`
	GuardianPhone  string `json:"guardianPhone"`
	ExpoPushToken  string `json:"expoPushToken"`
}

func (Student) TableName() string { return "students" }

// FullName is used in batch error messages and reminder templates.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
