package apiserver

import (
	goctx "context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/automl-framework/orchestrator/context"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/types"
)

const DefaultAddr = "0.0.0.0:7074"

// APIServer is the control surface of the orchestrator. Runs are created,
// observed and stopped over it.
type APIServer struct {
	router *gin.Engine
	ctx    *context.RootContext

	server *http.Server
	addr   string

	*types.BaseService
}

func NewAPIServer(ctx *context.RootContext) *APIServer {

	server := &APIServer{
		ctx:         ctx,
		addr:        ctx.Config.APIServerAddr,
		BaseService: types.NewBaseService("APIServer", ctx.Logger),
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(server.logMiddleware)

	router.POST("/runs", server.HandleRunPost)
	router.GET("/runs", server.handleRuns)
	router.GET("/runs/:run", server.handleRunGet)
	router.POST("/runs/:run/stop", server.HandleRunStop)
	router.GET("/runs/:run/leaderboard", server.handleLeaderboard)
	router.GET("/runs/:run/feedback", server.handleFeedback)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server.router = router
	server.server = &http.Server{
		Addr:    server.addr,
		Handler: router,
	}

	return server
}

func (a *APIServer) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	// Process request
	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"timestamp":   end,
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"body_size":   c.Writer.Size(),
		"path":        path,
	}).Debug("Handled request")
}

func (a *APIServer) Start() {
	a.StartRunning()
	go func() {
		a.Logger.With(log.LogParams{
			"addr": a.addr,
		}).Info("API server starting!")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": a.addr,
				"err":  err,
			}).Fatal("API server closed!")
		}
	}()
}

func (a *APIServer) Stop() {
	a.StopRunning()
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("API server forcefully shutdown")
	}
	a.Logger.Info("API server stopped!")
}
