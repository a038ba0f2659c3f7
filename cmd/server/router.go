package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/rfm-dashboard/docs"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dashboard"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/database"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/monitoring"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/types"
)

const version = "1.0.0"

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func setupRouter(a *app) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(a.cfg.Security.TrustedProxies); err != nil {
		slog.Warn("Invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(a.compression.Handler())
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.prom, a.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(a.logger, a.cfg.Security.MaxUploadBytes))

	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(a.security.CORS())
	r.Use(a.security.SecurityHeaders)
	r.Use(a.security.RequestTimeout)
	r.Use(a.security.ValidateContentType)
	r.Use(a.security.RateLimitByIP)

	r.GET("/health", a.health)
	r.GET("/metrics", a.metricsJSON)
	r.GET("/metrics/prometheus", gin.WrapH(a.prom.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/dashboard", a.getDashboard)
		api.GET("/cohort/heatmap", a.getHeatmap)

		api.GET("/rfm/scores", a.getScores)
		api.POST("/rfm/score", a.postScore)

		api.GET("/datasets", a.listDatasets)
		api.POST("/datasets/:kind", a.security.LimitUploadSize, a.uploadDataset)
		api.DELETE("/datasets/:id", a.deleteDataset)

		api.GET("/export/orders.csv", a.exportOrders)
		api.GET("/export/rfm.csv", a.exportCustomers)
		api.GET("/export/rfm_scored.csv", a.exportScored)
		api.GET("/export/dashboard.xlsx", a.exportWorkbook)
	}

	return r
}

// health godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.HealthResponse
// @Router /health [get]
func (a *app) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := types.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   version,
		Checks:    map[string]string{"sqlite": "ok"},
	}
	if err := a.db.Ping(ctx); err != nil {
		resp.Checks["sqlite"] = err.Error()
		resp.Status = "degraded"
	}
	if a.pgGuard != nil {
		// an open breaker still serves uploads and files, so it does not degrade
		resp.Checks["postgres"] = a.pgGuard.State()
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *app) metricsJSON(c *gin.Context) {
	stats := a.metrics.GetStats()
	stats["cache"] = a.cache.Stats()
	stats["compression"] = a.compression.GetStats()
	stats["database_pool"] = a.db.GetPoolStats()
	stats["memory"] = a.memory.Last()
	stats["rate_limiters"] = a.security.LimiterCount()
	if a.pgGuard != nil {
		stats["postgres_breaker"] = a.pgGuard.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

// bindFilter reads the shared dashboard/export query parameters
func (a *app) bindFilter(c *gin.Context) (dataset.Filter, dashboard.SnapshotOptions, bool) {
	var q types.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid query parameters", err.Error()))
		return dataset.Filter{}, dashboard.SnapshotOptions{}, false
	}
	if err := a.security.ValidateQueryValue("country", q.Country); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid country", err.Error()))
		return dataset.Filter{}, dashboard.SnapshotOptions{}, false
	}

	f, opts, err := dashboard.ParseQuery(q)
	if err != nil {
		apperrors.Abort(c, err)
		return dataset.Filter{}, dashboard.SnapshotOptions{}, false
	}
	return f, opts, true
}

// getDashboard godoc
// @Summary Build the dashboard for the given filters
// @Tags dashboard
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD)"
// @Param end query string false "Last day (YYYY-MM-DD)"
// @Param country query string false "Country or All"
// @Param seed query int false "Snapshot sampling seed"
// @Param size query int false "Snapshot size"
// @Success 200 {object} types.Dashboard
// @Failure 400 {object} errors.AppError
// @Failure 404 {object} errors.AppError
// @Router /api/dashboard [get]
func (a *app) getDashboard(c *gin.Context) {
	f, opts, ok := a.bindFilter(c)
	if !ok {
		return
	}

	d, err := a.dashboard.Build(c.Request.Context(), f, opts)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (a *app) getHeatmap(c *gin.Context) {
	path, ok := a.dashboard.HeatmapPath()
	if !ok {
		apperrors.Abort(c, apperrors.NewDataUnavailableError(dashboard.CohortMessage, dataset.ErrNotFound))
		return
	}
	c.File(path)
}

// getScores godoc
// @Summary Score the loaded RFM table
// @Tags rfm
// @Produce json
// @Success 200 {object} types.ScoreResponse
// @Failure 422 {object} errors.AppError
// @Router /api/rfm/scores [get]
func (a *app) getScores(c *gin.Context) {
	scored, err := a.dashboard.Scored(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewScoreResponse(scored, rfm.DefaultTopSegments))
}

// postScore godoc
// @Summary Score the posted customers
// @Tags rfm
// @Accept json
// @Produce json
// @Param request body types.ScoreRequest true "Customers"
// @Success 200 {object} types.ScoreResponse
// @Failure 400 {object} errors.AppError
// @Failure 422 {object} errors.AppError
// @Router /api/rfm/score [post]
func (a *app) postScore(c *gin.Context) {
	var req types.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	scored, err := a.dashboard.Score(req.Customers)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewScoreResponse(scored, req.Top))
}

func (a *app) listDatasets(c *gin.Context) {
	uploads, err := a.uploads.List(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads, "sources": a.loader.Sources()})
}

// uploadDataset godoc
// @Summary Upload a dataset
// @Tags datasets
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Dataset kind" Enums(orders, rfm)
// @Param file formData file true "CSV file"
// @Success 201 {object} types.UploadResponse
// @Failure 400 {object} errors.AppError
// @Failure 413 {object} errors.AppError
// @Router /api/datasets/{kind} [post]
func (a *app) uploadDataset(c *gin.Context) {
	kind, err := dataset.ParseKind(c.Param("kind"))
	if err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Dataset kind must be orders or rfm", c.Param("kind")))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge := apperrors.NewValidationError("Upload exceeds the size limit", maxErr.Limit)
			tooLarge.HTTPStatus = http.StatusRequestEntityTooLarge
			apperrors.Abort(c, tooLarge)
			return
		}
		apperrors.Abort(c, apperrors.NewValidationError("A CSV file is required in the 'file' field", err.Error()))
		return
	}

	f, err := header.Open()
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to open upload", err))
		return
	}
	defer apperrors.SafeClose(f, "upload")

	content, err := io.ReadAll(f)
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to read upload", err))
		return
	}

	upload, err := a.uploads.Store(c.Request.Context(), kind, header.Filename, content)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.UploadResponse{
		ID:        upload.ID,
		Kind:      upload.Kind,
		Name:      upload.Name,
		Rows:      upload.Rows,
		Size:      upload.Size,
		CreatedAt: upload.CreatedAt,
		Message:   "Loaded " + header.Filename + " from upload.",
	})
}

func (a *app) deleteDataset(c *gin.Context) {
	err := a.uploads.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrInvalidID) {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid upload id", c.Param("id")))
		return
	}
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) exportOrders(c *gin.Context) {
	f, _, ok := a.bindFilter(c)
	if !ok {
		return
	}
	orders, err := a.dashboard.FilteredOrders(c.Request.Context(), f)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	a.attach(c, "csv", dataset.OrdersFileName, contentTypeCSV, orders.Len(), func(w io.Writer) error {
		return dataset.WriteOrdersCSV(w, orders)
	})
}

func (a *app) exportCustomers(c *gin.Context) {
	customers, _, err := a.dashboard.Customers(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	a.attach(c, "csv", dataset.CustomersFileName, contentTypeCSV, customers.Len(), func(w io.Writer) error {
		return dataset.WriteCustomersCSV(w, customers)
	})
}

func (a *app) exportScored(c *gin.Context) {
	scored, err := a.dashboard.Scored(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	a.attach(c, "csv", dataset.ScoredFileName, contentTypeCSV, len(scored), func(w io.Writer) error {
		return dataset.WriteScoredCSV(w, scored)
	})
}

func (a *app) exportWorkbook(c *gin.Context) {
	f, _, ok := a.bindFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	orders, err := a.dashboard.FilteredOrders(ctx, f)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	customers, _, err := a.dashboard.Customers(ctx)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	// the scored sheet is optional
	scored, err := a.dashboard.Scored(ctx)
	if err != nil && !errors.Is(err, rfm.ErrInsufficientData) {
		apperrors.Abort(c, err)
		return
	}

	a.attach(c, "xlsx", dataset.WorkbookFileName, contentTypeXLSX, orders.Len()+customers.Len(), func(w io.Writer) error {
		return dataset.WriteWorkbook(w, orders, customers, scored)
	})
}

// attach renders a download. The body is built in memory first so a failed
// write still produces a proper error response
func (a *app) attach(c *gin.Context, format, fileName, contentType string, rows int, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to render "+fileName, err))
		return
	}

	a.recorder.Exported(format, fileName, rows)
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
