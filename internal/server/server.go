// Package server exposes extraction, validation and job lookup over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/pipeline"
	"github.com/joseph-ayodele/attendance-tracker/internal/records"
	"github.com/joseph-ayodele/attendance-tracker/internal/repository"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

// Extractor is satisfied by *pipeline.Processor.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (pipeline.Result, error)
	ProcessUpload(ctx context.Context, path, source string) (pipeline.Result, error)
}

// Exporter is satisfied by *export.Service.
type Exporter interface {
	ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error)
}

// Pinger reports database health.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

type Deps struct {
	Processor Extractor
	Validator *validate.Validator
	Jobs      repository.ImportJobRepository
	Records   repository.RecordRepository
	Export    Exporter
	DB        Pinger
}

type Server struct {
	deps   Deps
	cfg    common.ServerConfig
	logger *slog.Logger
}

func New(deps Deps, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	return &Server{deps: deps, cfg: cfg, logger: logger}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(s.logger), RequestLogger(s.logger))
	r.MaxMultipartMemory = s.cfg.MaxUploadMB << 20

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.Use(RateLimit(s.cfg.RateLimit, s.cfg.RateWindow, s.logger), Auth(s.cfg.APIToken, s.cfg.JWTSecret))
	v1.POST("/extract", s.extract)
	v1.POST("/validate", s.validate)
	v1.GET("/jobs", s.listJobs)
	v1.GET("/jobs/:id", s.getJob)
	v1.GET("/jobs/:id/export.xlsx", s.exportJob)
	return r
}

type errorBody struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func abortError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(common.HTTPStatus(err), errorBody{
		Code:      common.ErrorCode(err),
		Error:     err.Error(),
		RequestID: GetRequestID(c),
	})
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// extract accepts a multipart "file". With ?persist=true the document runs as an
// import job and the response carries its job_id.
func (s *Server) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		abortError(c, common.NewAppError("INVALID_ARGUMENT", "multipart field \"file\" is required", common.ErrInvalidInput))
		return
	}
	ext := filepath.Ext(fh.Filename)
	if !constants.IsAllowedExt(ext) {
		abortError(c, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported file %q", fh.Filename), common.ErrUnsupported))
		return
	}
	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))

	dir, err := os.MkdirTemp("", "attendance-upload-")
	if err != nil {
		abortError(c, err)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		abortError(c, err)
		return
	}

	var res pipeline.Result
	if persist {
		res, err = s.deps.Processor.ProcessUpload(c.Request.Context(), path, fh.Filename)
	} else {
		res, err = s.deps.Processor.ExtractFile(c.Request.Context(), path)
	}
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type validateResponse struct {
	Validation entity.ValidationResult `json:"validation"`
	Missing    []entity.MissingData    `json:"missing"`
	Notes      []string                `json:"notes,omitempty"`
}

// validate takes an edited records document and re-runs validation on it.
func (s *Server) validate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20))
	if err != nil {
		abortError(c, common.NewAppError("INVALID_ARGUMENT", "read body", errors.Join(common.ErrInvalidInput, err)))
		return
	}
	recs, notes, err := records.Decode(body)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, validateResponse{
		Validation: s.deps.Validator.ValidateRecords(recs),
		Missing:    validate.CheckMissing(recs),
		Notes:      notes,
	})
}

var jobStatuses = []string{
	string(constants.JobStatusQueued),
	string(constants.JobStatusRunning),
	string(constants.JobStatusExtracted),
	string(constants.JobStatusSubmitted),
	string(constants.JobStatusFailed),
}

func (s *Server) listJobs(c *gin.Context) {
	status := c.Query("status")
	limit := 50
	v := common.NewFieldValidator().Field("status", status, common.OneOf(jobStatuses...))
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.Field("limit", raw, common.IntRange(1, 500))
		} else {
			limit = n
			v.Field("limit", n, common.IntRange(1, 500))
		}
	}
	if err := v.Err(); err != nil {
		abortError(c, err)
		return
	}

	jobs, err := s.deps.Jobs.List(c.Request.Context(), repository.JobFilter{Status: status, Limit: limit})
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

type jobResponse struct {
	Job     *entity.ImportJob     `json:"job"`
	Records []entity.StoredRecord `json:"records"`
}

func (s *Server) jobID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	if err := common.NewFieldValidator().Field("id", raw, common.Required, common.UUID).Err(); err != nil {
		abortError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(raw), true
}

func (s *Server) getJob(c *gin.Context) {
	id, ok := s.jobID(c)
	if !ok {
		return
	}
	job, err := s.deps.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	recs, err := s.deps.Records.ListRecords(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobResponse{Job: job, Records: recs})
}

func (s *Server) exportJob(c *gin.Context) {
	id, ok := s.jobID(c)
	if !ok {
		return
	}
	if _, err := s.deps.Jobs.Get(c.Request.Context(), id); err != nil {
		abortError(c, err)
		return
	}
	data, err := s.deps.Export.ExportJobXLSX(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
