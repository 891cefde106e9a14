package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/incubatehub/compliance-api/internal/dto"
	"github.com/incubatehub/compliance-api/internal/middleware"
	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/internal/service"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
	"github.com/incubatehub/compliance-api/pkg/response"
)

type complianceService interface {
	Overview(ctx context.Context, companyCode string, opts service.OverviewOptions) (*models.ComplianceOverview, bool, error)
	Participant(ctx context.Context, companyCode, participantID string) (*models.ParticipantComplianceSummary, error)
	VerifyDocument(ctx context.Context, req dto.VerifyDocumentRequest, reviewer string) (*models.ParticipantComplianceSummary, bool, error)
	Reminders(ctx context.Context, companyCode string) ([]models.ReminderPayload, error)
}

type reminderDispatcher interface {
	Dispatch(ctx context.Context, companyCode string) (int, error)
}

// ComplianceHandler exposes the compliance dashboard endpoints.
type ComplianceHandler struct {
	service   complianceService
	reminders reminderDispatcher
}

// NewComplianceHandler constructs the handler. reminders may be nil when publishing is disabled.
func NewComplianceHandler(service complianceService, reminders reminderDispatcher) *ComplianceHandler {
	return &ComplianceHandler{service: service, reminders: reminders}
}

// Overview godoc
// @Summary Compliance overview for a company
// @Tags Compliance
// @Produce json
// @Param companyCode query string true "Company code"
// @Param refresh query bool false "Bypass the overview cache"
// @Success 200 {object} response.Envelope
// @Router /compliance/overview [get]
func (h *ComplianceHandler) Overview(c *gin.Context) {
	overview, meta, ok := h.loadOverview(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, meta)
}

// Stats godoc
// @Summary Global compliance statistics for a company
// @Tags Compliance
// @Produce json
// @Param companyCode query string true "Company code"
// @Success 200 {object} response.Envelope
// @Router /compliance/stats [get]
func (h *ComplianceHandler) Stats(c *gin.Context) {
	overview, meta, ok := h.loadOverview(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, overview.Stats, nil, meta)
}

func (h *ComplianceHandler) loadOverview(c *gin.Context) (*models.ComplianceOverview, map[string]interface{}, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return nil, nil, false
	}
	var query dto.OverviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return nil, nil, false
	}
	companyCode, err := scopedCompanyCode(claimsFromContext(c), query.CompanyCode)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context(), companyCode, service.OverviewOptions{Refresh: query.Refresh})
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	middleware.SetCompanyCode(c, companyCode)
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return overview, meta, true
}

// Participant godoc
// @Summary Compliance summary for one participant
// @Tags Compliance
// @Produce json
// @Param id path string true "Participant ID"
// @Param companyCode query string true "Company code"
// @Success 200 {object} response.Envelope
// @Router /compliance/participants/{id} [get]
func (h *ComplianceHandler) Participant(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	companyCode, err := scopedCompanyCode(claimsFromContext(c), c.Query("companyCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	participantID := strings.TrimSpace(c.Param("id"))
	if participantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "participant id is required"))
		return
	}
	summary, err := h.service.Participant(c.Request.Context(), companyCode, participantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ParticipantComplianceResponse{CompanyCode: companyCode, Summary: *summary}, nil)
}

// Verify godoc
// @Summary Verify or query a participant document
// @Tags Compliance
// @Accept json
// @Produce json
// @Param id path string true "Participant ID"
// @Param payload body dto.VerifyDocumentRequest true "Verification decision"
// @Success 200 {object} response.Envelope
// @Router /compliance/participants/{id}/verify [post]
func (h *ComplianceHandler) Verify(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.VerifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	companyCode, err := scopedCompanyCode(claims, req.CompanyCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.CompanyCode = companyCode
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		req.ParticipantID = id
	}
	reviewer := claims.FullName
	if strings.TrimSpace(reviewer) == "" {
		reviewer = claims.Email
	}
	summary, cacheStale, err := h.service.VerifyDocument(c.Request.Context(), req, reviewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCompanyCode(c, companyCode)
	if cacheStale {
		middleware.MarkCacheStale(c)
	}
	response.JSON(c, http.StatusOK, dto.ParticipantComplianceResponse{CompanyCode: companyCode, Summary: *summary}, nil, middleware.ExtractMeta(c))
}

// Reminders godoc
// @Summary Reminder payloads for participants needing action
// @Tags Compliance
// @Produce json
// @Param companyCode query string true "Company code"
// @Success 200 {object} response.Envelope
// @Router /compliance/reminders [get]
func (h *ComplianceHandler) Reminders(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	companyCode, err := scopedCompanyCode(claimsFromContext(c), c.Query("companyCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	reminders, err := h.service.Reminders(c.Request.Context(), companyCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	if reminders == nil {
		reminders = []models.ReminderPayload{}
	}
	response.JSON(c, http.StatusOK, dto.RemindersResponse{CompanyCode: companyCode, Reminders: reminders}, nil)
}

// DispatchReminders godoc
// @Summary Publish reminders to the notifier queue
// @Tags Compliance
// @Accept json
// @Produce json
// @Param payload body dto.DispatchRemindersRequest true "Company to remind"
// @Success 200 {object} response.Envelope
// @Router /compliance/reminders/dispatch [post]
func (h *ComplianceHandler) DispatchReminders(c *gin.Context) {
	if h.reminders == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "reminder dispatch not configured"))
		return
	}
	var req dto.DispatchRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	companyCode, err := scopedCompanyCode(claimsFromContext(c), req.CompanyCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	published, err := h.reminders.Dispatch(c.Request.Context(), companyCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DispatchRemindersResponse{CompanyCode: companyCode, Published: published}, nil)
}
