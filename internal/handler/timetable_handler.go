package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Preview(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	CommitProposal(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error)
	Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.EnqueueTimetableResponse, error)
	JobStatus(ctx context.Context, id string) (*models.GenerationJob, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableSummary, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.TimetableDetail, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateTimetableStatusRequest) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, program, term string) (int64, error)
	Export(ctx context.Context, id, format string) (*dto.ExportFile, error)
}

// TimetableHandler exposes generation and timetable endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

func persistedMeta(c *gin.Context) map[string]interface{} {
	meta := map[string]interface{}{"mode": "persisted"}
	if claims := claimsFromContext(c); claims != nil {
		meta["requestedBy"] = claims.UserID
	}
	return meta
}

func bindGenerateRequest(c *gin.Context) (dto.GenerateTimetableRequest, bool) {
	return bindJSON[dto.GenerateTimetableRequest](c, "invalid timetable generation payload")
}

// Generate godoc
// @Summary Generate and store timetables for a program term
// @Description Archives earlier timetables of the program term, creates groups "<program> <term>-<n>" and stores every non-empty result.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil, persistedMeta(c))
}

// Preview godoc
// @Summary Preview timetables without storing them
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/preview [post]
func (h *TimetableHandler) Preview(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	resp, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, map[string]interface{}{"mode": "preview"})
}

// CommitProposal godoc
// @Summary Store a previewed proposal
// @Tags Timetables
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 201 {object} response.Envelope
// @Router /timetables/proposals/{id}/commit [post]
func (h *TimetableHandler) CommitProposal(c *gin.Context) {
	resp, err := h.service.CommitProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil, persistedMeta(c))
}

// Enqueue godoc
// @Summary Queue a timetable generation
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/jobs [post]
func (h *TimetableHandler) Enqueue(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	resp, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// JobStatus godoc
// @Summary Poll a queued generation
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	job, err := h.service.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Param status query string false "generated, active or archived"
// @Param program query string false "Program"
// @Param term query string false "Term"
// @Param groupId query string false "Group ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	query, ok := bindQuery[dto.TimetableQuery](c)
	if !ok {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get timetable with assignments
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateStatus godoc
// @Summary Change timetable status
// @Tags Timetables
// @Accept json
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableStatusRequest true "Status payload"
// @Success 204
// @Router /timetables/{id}/status [patch]
func (h *TimetableHandler) UpdateStatus(c *gin.Context) {
	req, ok := bindJSON[dto.UpdateTimetableStatusRequest](c, "invalid status payload")
	if !ok {
		return
	}
	if err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAll godoc
// @Summary Delete timetables in bulk
// @Tags Timetables
// @Produce json
// @Param program query string false "Program"
// @Param term query string false "Term (requires program)"
// @Success 200 {object} response.Envelope
// @Router /timetables [delete]
func (h *TimetableHandler) DeleteAll(c *gin.Context) {
	removed, err := h.service.DeleteAll(c.Request.Context(), c.Query("program"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": removed}, nil)
}

// Export godoc
// @Summary Download a timetable
// @Tags Timetables
// @Produce octet-stream
// @Param id path string true "Timetable ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
