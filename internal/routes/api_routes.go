package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/internal/handlers"
	"github.com/verixence/erp-school-sub008/internal/middleware"
)

// RegisterAPIRoutes wires every fee engine endpoint onto the engine. All
// routes are tenant-scoped through the school_id query parameter; only the
// cron surface carries the shared-secret check.
func RegisterAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		fees := api.Group("/fees")
		{
			categories := fees.Group("/categories")
			{
				categories.GET("", handlers.ListFeeCategoriesHandler)
				categories.POST("", handlers.CreateFeeCategoryHandler)
				categories.PUT("/:id", handlers.UpdateFeeCategoryHandler)
				categories.DELETE("/:id", handlers.DeleteFeeCategoryHandler)
			}

			structures := fees.Group("/structures")
			{
				structures.GET("", handlers.ListFeeStructuresHandler)
				structures.POST("", handlers.CreateFeeStructureHandler)
				structures.PUT("/:id", handlers.UpdateFeeStructureHandler)
				structures.DELETE("/:id", handlers.DeleteFeeStructureHandler)
			}

			fees.POST("/assign-students", handlers.AssignFeesHandler)
			fees.GET("/assign-students", handlers.ListAssignmentsHandler)
			fees.GET("/students/:id/fees", handlers.ListStudentFeesHandler)
			fees.DELETE("/assignments/:id", handlers.RemoveStudentFeeHandler)

			fees.POST("/generate-invoices", handlers.GenerateInvoicesHandler)
			invoices := fees.Group("/invoices")
			{
				invoices.GET("", handlers.ListInvoicesHandler)
				invoices.GET("/archive/download", handlers.DownloadInvoiceArchiveHandler)
				invoices.GET("/:id", handlers.GetInvoiceHandler)
			}

			payments := fees.Group("/payments")
			{
				payments.POST("", handlers.ApplyPaymentHandler)
				payments.GET("", handlers.ListPaymentsHandler)
				payments.GET("/:id/receipt", handlers.GetPaymentReceiptHandler)
			}

			schedules := fees.Group("/payment-schedules")
			{
				schedules.GET("", handlers.ListPaymentSchedulesHandler)
				schedules.POST("", handlers.CreatePaymentScheduleHandler)
				schedules.GET("/:id", handlers.GetPaymentScheduleHandler)
				schedules.PUT("/:id", handlers.UpdatePaymentScheduleHandler)
				schedules.DELETE("/:id", handlers.DeletePaymentScheduleHandler)
				schedules.POST("/:id/send-reminder", handlers.SendScheduleReminderHandler)
				schedules.GET("/:id/status-export", handlers.ExportScheduleStatusHandler)
				schedules.GET("/:id/reminder-logs", handlers.ListReminderLogsHandler)
			}

			expenses := fees.Group("/expenses")
			{
				expenses.GET("", handlers.ListExpensesHandler)
				expenses.POST("", handlers.CreateExpenseHandler)
				expenses.DELETE("/:id", handlers.DeleteExpenseHandler)
			}

			claims := fees.Group("/claims")
			{
				claims.GET("", handlers.ListExpenseClaimsHandler)
				claims.POST("", handlers.CreateExpenseClaimHandler)
				claims.POST("/:id/review", handlers.ReviewExpenseClaimHandler)
			}
		}

		cron := api.Group("/cron", middleware.CronAuthMiddleware())
		{
			cron.GET("/process-fee-reminders", handlers.ProcessFeeRemindersHandler)
			cron.POST("/process-fee-reminders", handlers.ProcessFeeRemindersHandler)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/transactions", handlers.ReportTransactionsHandler)
		}
	}
}
