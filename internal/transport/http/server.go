package http

import (
	"github.com/gin-gonic/gin"

	"bookwise/internal/bootstrap"
	"bookwise/internal/transport/http/handler"
	"bookwise/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	booksHandler := handler.NewBooksHandler(app.IngestService, app.Publisher, app.Library)
	chatHandler := handler.NewChatHandler(app.QueryService)
	filesHandler := handler.NewFilesHandler(app.Library)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/files/*filepath", filesHandler.Serve)

	v1 := router.Group("/api/v1")

	booksGroup := v1.Group("/books")
	booksGroup.GET("", booksHandler.List)
	booksGroup.POST("/ingest", booksHandler.Ingest)
	booksGroup.POST("/select", booksHandler.Select)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.DELETE("/history", chatHandler.ClearHistory)

	return router
}
