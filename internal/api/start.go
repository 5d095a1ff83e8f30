package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobserver"
)

// Start wires the job server and the HTTP surface together and serves until
// the context is done.
func Start(ctx context.Context, listenAddress string, config types.JobConfiguration) error {

	// Echo instance
	e := echo.New()
	e.HideBanner = true

	switch config.GetString("log_level", "info") {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	maxJobs := config.GetInt("max_jobs", 0)
	if maxJobs <= 0 {
		maxJobs = 10
		e.Logger.Warn("MAX_JOBS is not set, using default of 10")
	}

	// Jobserver instance
	jobServer := jobserver.NewJobServer(maxJobs, config)
	go jobServer.Run(ctx)

	healthMetrics := NewHealthMetrics()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(APIKeyAuthMiddleware(config))
	e.Use(HealthMetricsMiddleware(healthMetrics))

	// Health check endpoints (no auth required)
	e.GET("/healthz", Healthz())
	e.GET("/readyz", Readyz(jobServer, healthMetrics))

	if config.GetBool("profiling_enabled", false) {
		enableProfiling(e)
	}

	job := e.Group("/job")
	job.POST("/add", add(jobServer))
	job.GET("/status/:job_id", status(jobServer))
	job.GET("/result/:job_id", result(jobServer))

	e.GET("/stats", serverStats(jobServer))

	go func() {
		<-ctx.Done()
		if err := e.Close(); err != nil {
			e.Logger.Error("Failed to close Echo server: ", err)
		}
	}()

	e.Logger.Info(fmt.Sprintf("Starting server on %s", listenAddress))
	if err := e.Start(listenAddress); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// enableProfiling registers the pprof endpoints and turns on the runtime
// probes they need.
func enableProfiling(e *echo.Echo) {
	e.Logger.Info("Enabling profiling - this may impact performance")

	runtime.SetBlockProfileRate(500)
	runtime.SetMutexProfileFraction(1)

	pprof.Register(e)
}
