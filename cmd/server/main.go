package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/routes"
	"github.com/verixence/erp-school-sub008/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
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
	); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	r := gin.Default()
	routes.RegisterAPIRoutes(r)

	addr := config.ListenAddr()
	slog.Info("starting fee engine", "addr", addr)
	if err := r.Run(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
