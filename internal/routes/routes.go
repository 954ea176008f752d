package routes

import (
	"github.com/gin-gonic/gin"

	handler "reconciliation-console/internal/handlers"
)

func RegisterRoutes(r *gin.Engine, console *handler.ConsoleHandler, audit *handler.AuditHandler) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", audit.Health)

	// Opening the page starts a session; everything else needs one
	r.GET("/", console.Session(), console.Index)

	ui := r.Group("/", console.RequireSession())
	ui.POST("/refresh", console.Refresh)
	ui.GET("/search", console.Search)

	ui.POST("/transactions/:id/select", console.SelectTransaction)
	ui.POST("/invoices/:id/select", console.SelectInvoice)

	match := ui.Group("/match")
	match.POST("/confirm", console.ConfirmMatch)
	match.POST("/cancel", console.CancelMatch)

	matches := ui.Group("/matches")
	matches.GET("/:transactionId/undo", console.UndoPrompt)
	matches.POST("/:transactionId/undo", console.UndoMatch)

	exports := ui.Group("/export")
	{
		exports.GET("/transactions.xlsx", console.ExportTransactions)
		exports.GET("/invoices.xlsx", console.ExportInvoices)
	}

	state := api.Group("/console", console.RequireSession())
	state.GET("/state", console.State)
	state.GET("/audit", audit.SessionLog)
}
