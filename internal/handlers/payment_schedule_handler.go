package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/fees"
	"github.com/verixence/erp-school-sub008/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleItemInput struct {
	FeeCategoryID  uint     `json:"feeCategoryId" binding:"required"`
	AmountOverride *float64 `json:"amountOverride"`
	IsMandatory    *bool    `json:"isMandatory"`
}

type ScheduleInstallmentInput struct {
	Number      int      `json:"number" binding:"required,min=1"`
	Name        string   `json:"name"`
	DueDate     string   `json:"dueDate" binding:"required"`
	Percentage  *float64 `json:"percentage"`
	FixedAmount *float64 `json:"fixedAmount"`
	Formula     string   `json:"formula"`
	GraceDays   int      `json:"graceDays"`
}

type ScheduleReminderInput struct {
	ReminderType    string   `json:"reminderType" binding:"required"`
	DaysBefore      int      `json:"daysBefore"`
	Channels        []string `json:"channels"`
	MessageTemplate string   `json:"messageTemplate"`
	IsActive        *bool    `json:"isActive"`
}

// PaymentScheduleInput drives both create and update. The child collections
// are pointers to slices: on update a nil collection is left untouched while
// a present one (even empty) replaces the stored rows wholesale.
type PaymentScheduleInput struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	AcademicYear string `json:"academicYear" binding:"required"`
	DueDate      string `json:"dueDate" binding:"required"`
	GraceDays    int    `json:"graceDays"`

	LateFeeEnabled    bool    `json:"lateFeeEnabled"`
	LateFeeType       string  `json:"lateFeeType"`
	LateFeeAmount     float64 `json:"lateFeeAmount"`
	LateFeePercentage float64 `json:"lateFeePercentage"`
	LateFeeMax        float64 `json:"lateFeeMax"`

	IsInstallment bool   `json:"isInstallment"`
	Status        string `json:"status"`

	Grades       *[]string                   `json:"grades"`
	Items        *[]ScheduleItemInput        `json:"items"`
	Installments *[]ScheduleInstallmentInput `json:"installments"`
	Reminders    *[]ScheduleReminderInput    `json:"reminders"`
}

func buildInstallments(inputs []ScheduleInstallmentInput) ([]models.ScheduleInstallment, error) {
	installments := make([]models.ScheduleInstallment, 0, len(inputs))
	for _, in := range inputs {
		dueDate, err := time.Parse(dateLayout, in.DueDate)
		if err != nil {
			return nil, fmt.Errorf("installment %d: dueDate must be formatted as 2006-01-02", in.Number)
		}
		installments = append(installments, models.ScheduleInstallment{
			Number:      in.Number,
			Name:        in.Name,
			DueDate:     dueDate,
			Percentage:  in.Percentage,
			FixedAmount: in.FixedAmount,
			Formula:     in.Formula,
			GraceDays:   in.GraceDays,
		})
	}
	return installments, nil
}

func buildReminders(inputs []ScheduleReminderInput) []models.ScheduleReminder {
	reminders := make([]models.ScheduleReminder, 0, len(inputs))
	for _, in := range inputs {
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		channels := models.StringList(in.Channels)
		if len(channels) == 0 {
			channels = models.StringList{"in_app"}
		}
		reminders = append(reminders, models.ScheduleReminder{
			ReminderType:    in.ReminderType,
			DaysBefore:      in.DaysBefore,
			Channels:        channels,
			MessageTemplate: in.MessageTemplate,
			IsActive:        active,
		})
	}
	return reminders
}

func buildItems(inputs []ScheduleItemInput) []models.ScheduleItem {
	items := make([]models.ScheduleItem, 0, len(inputs))
	for _, in := range inputs {
		mandatory := true
		if in.IsMandatory != nil {
			mandatory = *in.IsMandatory
		}
		items = append(items, models.ScheduleItem{
			FeeCategoryID:  in.FeeCategoryID,
			AmountOverride: in.AmountOverride,
			IsMandatory:    mandatory,
		})
	}
	return items
}

// CreatePaymentScheduleHandler creates a collection campaign and
// materializes its per-student status rows in the same transaction.
func CreatePaymentScheduleHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input PaymentScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if input.Grades == nil || len(*input.Grades) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A schedule needs at least one grade"})
		return
	}
	if input.Items == nil || len(*input.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A schedule needs at least one fee item"})
		return
	}

	dueDate, err := time.Parse(dateLayout, input.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be formatted as 2006-01-02"})
		return
	}

	var installments []models.ScheduleInstallment
	if input.IsInstallment {
		if input.Installments == nil || len(*input.Installments) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An installment schedule needs installments"})
			return
		}
		installments, err = buildInstallments(*input.Installments)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := fees.ValidateInstallments(installments); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	status := input.Status
	if status == "" {
		status = models.ScheduleActive
	}

	schedule := models.PaymentSchedule{
		SchoolID:          school,
		Name:              input.Name,
		Description:       input.Description,
		AcademicYear:      input.AcademicYear,
		DueDate:           dueDate,
		GraceDays:         input.GraceDays,
		LateFeeEnabled:    input.LateFeeEnabled,
		LateFeeType:       input.LateFeeType,
		LateFeeAmount:     input.LateFeeAmount,
		LateFeePercentage: input.LateFeePercentage,
		LateFeeMax:        input.LateFeeMax,
		IsInstallment:     input.IsInstallment,
		InstallmentCount:  len(installments),
		Status:            status,
		Installments:      installments,
		Items:             buildItems(*input.Items),
	}
	if input.Reminders != nil {
		schedule.Reminders = buildReminders(*input.Reminders)
	}
	for _, grade := range *input.Grades {
		schedule.Grades = append(schedule.Grades, models.ScheduleGrade{Grade: grade})
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		if err := materializeSchedule(tx, &schedule); err != nil {
			return err
		}
		return recomputeScheduleStats(tx, schedule.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment schedule: " + err.Error()})
		return
	}

	config.DB.Preload("Grades").Preload("Items").Preload("Installments").Preload("Reminders").First(&schedule, schedule.ID)
	c.JSON(http.StatusCreated, schedule)
}

// UpdatePaymentScheduleHandler edits a schedule. Provided child collections
// are replaced wholesale, omitted ones stay as stored. Coverage changes
// re-materialize status rows; rows that already carry payments are kept.
func UpdatePaymentScheduleHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var input PaymentScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	dueDate, err := time.Parse(dateLayout, input.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be formatted as 2006-01-02"})
		return
	}

	var installments []models.ScheduleInstallment
	if input.Installments != nil {
		installments, err = buildInstallments(*input.Installments)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.IsInstallment {
			if err := fees.ValidateInstallments(installments); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var schedule models.PaymentSchedule
		if err := tx.Where("school_id = ?", school).First(&schedule, id).Error; err != nil {
			return err
		}

		// Flipping to an installment plan without sending installments
		// must not leave a plan claiming rows it does not have.
		if input.IsInstallment && input.Installments == nil {
			var stored []models.ScheduleInstallment
			if err := tx.Where("schedule_id = ?", schedule.ID).Order("number").Find(&stored).Error; err != nil {
				return err
			}
			if err := fees.ValidateInstallments(stored); err != nil {
				return planError{err}
			}
			schedule.InstallmentCount = len(stored)
		}

		schedule.Name = input.Name
		schedule.Description = input.Description
		schedule.AcademicYear = input.AcademicYear
		schedule.DueDate = dueDate
		schedule.GraceDays = input.GraceDays
		schedule.LateFeeEnabled = input.LateFeeEnabled
		schedule.LateFeeType = input.LateFeeType
		schedule.LateFeeAmount = input.LateFeeAmount
		schedule.LateFeePercentage = input.LateFeePercentage
		schedule.LateFeeMax = input.LateFeeMax
		schedule.IsInstallment = input.IsInstallment
		if input.Status != "" {
			schedule.Status = input.Status
		}
		if input.Installments != nil {
			schedule.InstallmentCount = len(installments)
		}
		if err := tx.Omit(clause.Associations).Save(&schedule).Error; err != nil {
			return err
		}

		coverageChanged := false
		if input.Grades != nil {
			if err := tx.Where("schedule_id = ?", schedule.ID).Delete(&models.ScheduleGrade{}).Error; err != nil {
				return err
			}
			for _, grade := range *input.Grades {
				if err := tx.Create(&models.ScheduleGrade{ScheduleID: schedule.ID, Grade: grade}).Error; err != nil {
					return err
				}
			}
			coverageChanged = true
		}
		if input.Items != nil {
			if err := tx.Where("schedule_id = ?", schedule.ID).Delete(&models.ScheduleItem{}).Error; err != nil {
				return err
			}
			for _, item := range buildItems(*input.Items) {
				item.ScheduleID = schedule.ID
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			coverageChanged = true
		}
		if input.Installments != nil {
			if err := tx.Where("schedule_id = ?", schedule.ID).Delete(&models.ScheduleInstallment{}).Error; err != nil {
				return err
			}
			for _, inst := range installments {
				inst.ScheduleID = schedule.ID
				if err := tx.Create(&inst).Error; err != nil {
					return err
				}
			}
		}
		if input.Reminders != nil {
			if err := tx.Where("schedule_id = ?", schedule.ID).Delete(&models.ScheduleReminder{}).Error; err != nil {
				return err
			}
			for _, reminder := range buildReminders(*input.Reminders) {
				reminder.ScheduleID = schedule.ID
				if err := tx.Create(&reminder).Error; err != nil {
					return err
				}
			}
		}

		if coverageChanged {
			var fresh models.PaymentSchedule
			if err := tx.Preload("Grades").Preload("Items").First(&fresh, schedule.ID).Error; err != nil {
				return err
			}
			if err := materializeSchedule(tx, &fresh); err != nil {
				return err
			}
		}
		return recomputeScheduleStats(tx, schedule.ID)
	})

	var pe planError
	switch {
	case err == nil:
		var schedule models.PaymentSchedule
		config.DB.Preload("Grades").Preload("Items").Preload("Installments").Preload("Reminders").First(&schedule, id)
		c.JSON(http.StatusOK, schedule)
	case errors.As(err, &pe):
		c.JSON(http.StatusBadRequest, gin.H{"error": pe.Error()})
	case err == gorm.ErrRecordNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment schedule: " + err.Error()})
	}
}

// planError marks stored data failing validation inside the update
// transaction, mapped to 400 instead of 500.
type planError struct{ err error }

func (e planError) Error() string { return e.err.Error() }

// materializeSchedule inserts one status row per covered student, computing
// the demand from the schedule items against the student's grade pricing and
// personal discounts. Insert-if-absent: rows already present keep their
// paid and balance amounts.
func materializeSchedule(tx *gorm.DB, schedule *models.PaymentSchedule) error {
	grades := make([]string, 0, len(schedule.Grades))
	for _, g := range schedule.Grades {
		grades = append(grades, g.Grade)
	}
	if len(grades) == 0 || len(schedule.Items) == 0 {
		return nil
	}

	var students []models.Student
	if err := tx.Where("school_id = ? AND status = ? AND grade IN ?", schedule.SchoolID, "active", grades).
		Find(&students).Error; err != nil {
		return err
	}

	for _, student := range students {
		demand, err := studentDemand(tx, schedule, student)
		if err != nil {
			return err
		}
		if demand <= 0 {
			continue
		}

		row := models.PaymentStatusRow{
			SchoolID:      schedule.SchoolID,
			ScheduleID:    schedule.ID,
			StudentID:     student.ID,
			DemandAmount:  demand,
			BalanceAmount: demand,
			Status:        models.InvoicePending,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// studentDemand prices the schedule items for one student: the item
// override when set, otherwise the fee structure for the student's grade,
// reduced by the student's personal assignment discounts.
func studentDemand(tx *gorm.DB, schedule *models.PaymentSchedule, student models.Student) (float64, error) {
	var demand float64
	for _, item := range schedule.Items {
		if item.AmountOverride != nil {
			demand = fees.Round2(demand + *item.AmountOverride)
			continue
		}

		var structure models.FeeStructure
		err := tx.Where("school_id = ? AND fee_category_id = ? AND academic_year = ? AND grade IN ?",
			schedule.SchoolID, item.FeeCategoryID, schedule.AcademicYear, []string{student.Grade, "all"}).
			First(&structure).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return 0, err
		}

		amount := structure.Amount
		var assignment models.StudentFee
		if err := tx.Where("student_id = ? AND fee_structure_id = ? AND is_active = ?",
			student.ID, structure.ID, true).First(&assignment).Error; err == nil {
			amount, _ = fees.EffectiveAmount(structure.Amount, assignment)
		}
		demand = fees.Round2(demand + amount)
	}
	return demand, nil
}

// recomputeScheduleStats refreshes the denormalized counters on the
// schedule from its status rows.
func recomputeScheduleStats(tx *gorm.DB, scheduleID uint) error {
	type aggregate struct {
		Status string
		Count  int
		Due    float64
		Paid   float64
	}
	var rows []aggregate
	if err := tx.Model(&models.PaymentStatusRow{}).
		Select("status, count(*) as count, sum(balance_amount) as due, sum(paid_amount) as paid").
		Where("schedule_id = ?", scheduleID).
		Group("status").Scan(&rows).Error; err != nil {
		return err
	}

	stats := map[string]interface{}{
		"total_students": 0, "paid_count": 0, "partial_count": 0, "pending_count": 0,
		"total_due": 0.0, "total_collected": 0.0,
	}
	total, due, collected := 0, 0.0, 0.0
	for _, row := range rows {
		total += row.Count
		due += row.Due
		collected += row.Paid
		switch row.Status {
		case models.InvoicePaid:
			stats["paid_count"] = row.Count
		case models.InvoicePartial:
			stats["partial_count"] = row.Count
		case models.InvoicePending:
			stats["pending_count"] = row.Count
		}
	}
	stats["total_students"] = total
	stats["total_due"] = fees.Round2(due)
	stats["total_collected"] = fees.Round2(collected)

	return tx.Model(&models.PaymentSchedule{}).Where("id = ?", scheduleID).Updates(stats).Error
}

// ListPaymentSchedulesHandler lists a school's schedules with filters.
func ListPaymentSchedulesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.PaymentSchedule{}).Where("school_id = ?", school)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("academic_year = ?", year)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count payment schedules"})
		return
	}

	var schedules []models.PaymentSchedule
	if err := query.Scopes(Paginate(c)).Preload("Grades").Preload("Items").Order("due_date").Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch payment schedules"})
		return
	}
	if schedules == nil {
		schedules = make([]models.PaymentSchedule, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, schedules, totalRows))
}

// GetPaymentScheduleHandler returns one schedule with all child collections
// and its per-student status.
func GetPaymentScheduleHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var schedule models.PaymentSchedule
	if err := config.DB.Where("school_id = ?", school).
		Preload("Grades").Preload("Items.FeeCategory").Preload("Installments").Preload("Reminders").
		First(&schedule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
		return
	}

	var status []models.PaymentStatusRow
	if err := config.DB.Where("schedule_id = ?", id).Preload("Student").Order("id").Find(&status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch payment status"})
		return
	}
	if status == nil {
		status = make([]models.PaymentStatusRow, 0)
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule, "paymentStatus": status})
}

// DeletePaymentScheduleHandler removes a schedule with no collections yet.
// Once money arrived the schedule is deactivated instead so the rows keep
// their audit value.
func DeletePaymentScheduleHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var paidRows int64
	if err := config.DB.Model(&models.PaymentStatusRow{}).
		Where("schedule_id = ? AND paid_amount > 0", id).Count(&paidRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check payment status"})
		return
	}

	if paidRows > 0 {
		result := config.DB.Model(&models.PaymentSchedule{}).
			Where("id = ? AND school_id = ?", id, school).
			Update("status", models.ScheduleInactive)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate payment schedule"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Schedule has collected payments and was deactivated instead of deleted"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var schedule models.PaymentSchedule
		if err := tx.Where("school_id = ?", school).First(&schedule, id).Error; err != nil {
			return err
		}
		for _, child := range []interface{}{
			&models.ScheduleGrade{}, &models.ScheduleItem{},
			&models.ScheduleInstallment{}, &models.ScheduleReminder{},
			&models.PaymentStatusRow{},
		} {
			if err := tx.Where("schedule_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&schedule).Error
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Payment schedule deleted"})
	case err == gorm.ErrRecordNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete payment schedule"})
	}
}

// ExportScheduleStatusHandler downloads the per-student collection status
// of one schedule as an XLSX workbook.
func ExportScheduleStatusHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var schedule models.PaymentSchedule
	if err := config.DB.Where("school_id = ?", school).First(&schedule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
		return
	}

	var rows []models.PaymentStatusRow
	if err := config.DB.Where("schedule_id = ?", id).Preload("Student").Order("id").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch payment status"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Payment Status"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Admission No", "Grade", "Demand", "Paid", "Balance", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		var name, admissionNo, grade string
		if row.Student != nil {
			name = row.Student.FullName()
			admissionNo = row.Student.AdmissionNo
			grade = row.Student.Grade
		}
		values := []interface{}{name, admissionNo, grade, row.DemandAmount, row.PaidAmount, row.BalanceAmount, row.Status}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("Failed to build status export", "schedule_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=schedule_%d_status.xlsx", id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
