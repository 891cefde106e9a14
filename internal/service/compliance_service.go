package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/compliance"
	"github.com/incubatehub/compliance-api/internal/dto"
	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/internal/repository"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
)

const unnamedParticipant = "Unnamed"

// ApplicationStore reads accepted applications and rewrites their embedded compliance arrays.
type ApplicationStore interface {
	ListAccepted(ctx context.Context, companyCode string) ([]models.Application, error)
	ListByParticipant(ctx context.Context, companyCode, participantID string) ([]models.Application, error)
	GetByID(ctx context.Context, id string) (*models.Application, error)
	UpdateComplianceDocuments(ctx context.Context, id string, docs models.ComplianceDocumentList, expectedRevision int64) (int64, error)
}

// ParticipantStore reads participant contact records.
type ParticipantStore interface {
	ListByCompany(ctx context.Context, companyCode string) ([]models.Participant, error)
	GetByID(ctx context.Context, id string) (*models.Participant, error)
}

// ComplianceServiceConfig tunes status resolution and caching.
type ComplianceServiceConfig struct {
	ExpiringWindowDays int
	CacheTTL           time.Duration
	OptimisticLocking  bool
}

// OverviewOptions controls how an overview is produced.
type OverviewOptions struct {
	Refresh bool
}

// ComplianceService joins applications with participants and runs the compliance engine over them.
type ComplianceService struct {
	apps         ApplicationStore
	participants ParticipantStore
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
	cfg          ComplianceServiceConfig
}

// ComplianceServiceParams groups constructor dependencies.
type ComplianceServiceParams struct {
	Applications ApplicationStore
	Participants ParticipantStore
	Cache        *CacheService
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	Config       ComplianceServiceConfig
}

// NewComplianceService constructs a ComplianceService with sane defaults.
func NewComplianceService(params ComplianceServiceParams) *ComplianceService {
	cfg := params.Config
	if cfg.ExpiringWindowDays <= 0 {
		cfg.ExpiringWindowDays = compliance.DefaultExpiringWindowDays
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceService{
		apps:         params.Applications,
		participants: params.Participants,
		cache:        params.Cache,
		metrics:      params.Metrics,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

func overviewCacheKey(companyCode string) string {
	return fmt.Sprintf("compliance:%s", companyCode)
}

// Overview returns every participant summary of a company plus global stats and reports cache usage.
func (s *ComplianceService) Overview(ctx context.Context, companyCode string, opts OverviewOptions) (*models.ComplianceOverview, bool, error) {
	companyCode = strings.TrimSpace(companyCode)
	if companyCode == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "companyCode is required")
	}
	key := overviewCacheKey(companyCode)
	if !opts.Refresh && s.cache != nil {
		var cached models.ComplianceOverview
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, true, nil
		}
	}

	overview, err := s.buildOverview(ctx, companyCode)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, overview, s.cfg.CacheTTL)
	}
	s.metrics.RecordComplianceStats(companyCode, overview.Stats)
	return overview, false, nil
}

// Participant returns the merged summary of one participant's accepted applications.
func (s *ComplianceService) Participant(ctx context.Context, companyCode, participantID string) (*models.ParticipantComplianceSummary, error) {
	companyCode = strings.TrimSpace(companyCode)
	participantID = strings.TrimSpace(participantID)
	if companyCode == "" || participantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "companyCode and participantId are required")
	}

	apps, err := s.listParticipantApplications(ctx, companyCode, participantID)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "participant has no accepted applications")
	}

	var participant *models.Participant
	start := time.Now()
	record, err := s.participants.GetByID(ctx, participantID)
	s.metrics.ObserveStoreQuery("participants.get", time.Since(start))
	switch {
	case err == nil:
		if record.CompanyCode == "" || record.CompanyCode == companyCode {
			participant = record
		}
	case errors.Is(err, repository.ErrParticipantNotFound):
	default:
		s.logger.Error("failed to load participant", zap.String("participant_id", participantID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participant")
	}

	now := s.now().UTC()
	summaries := make([]models.ParticipantComplianceSummary, 0, len(apps))
	for _, app := range apps {
		summaries = append(summaries, s.summarize(app, participant, now))
	}
	merged := compliance.MergeSummaries(summaries)
	return &merged[0], nil
}

// VerifyDocument records a reviewer decision on one document, persists the owning
// application's array and returns the refreshed participant summary. The boolean
// reports that the company's cached overview could not be dropped and may be stale.
func (s *ComplianceService) VerifyDocument(ctx context.Context, req dto.VerifyDocumentRequest, reviewer string) (*models.ParticipantComplianceSummary, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	companyCode := strings.TrimSpace(req.CompanyCode)
	participantID := strings.TrimSpace(req.ParticipantID)

	apps, err := s.listParticipantApplications(ctx, companyCode, participantID)
	if err != nil {
		return nil, false, err
	}
	if len(apps) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "application not found for participant")
	}
	app, index, ok := locateDocument(apps, req)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "compliance document not found")
	}

	expected := repository.NoRevisionCheck
	if s.cfg.OptimisticLocking {
		expected = app.Revision
	} else {
		// Last-write-wins: rebuild from the stored copy.
		fresh, err := s.reloadApplication(ctx, app.ID)
		if err != nil {
			return nil, false, err
		}
		app, index, ok = locateDocument([]models.Application{*fresh}, req)
		if !ok {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "compliance document not found")
		}
	}

	docs := make(models.ComplianceDocumentList, len(app.ComplianceDocuments))
	copy(docs, app.ComplianceDocuments)
	applyDecision(&docs[index], req, reviewer, s.now().UTC())

	start := time.Now()
	_, err = s.apps.UpdateComplianceDocuments(ctx, app.ID, docs, expected)
	s.metrics.ObserveStoreQuery("applications.update_documents", time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRevisionConflict):
			return nil, false, appErrors.Clone(appErrors.ErrConflict, "application was modified by another reviewer, reload and retry")
		case errors.Is(err, repository.ErrApplicationNotFound):
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		default:
			s.logger.Error("failed to persist verification",
				zap.String("application_id", app.ID),
				zap.String("participant_id", participantID),
				zap.Error(err))
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save verification")
		}
	}

	s.metrics.RecordVerification(req.Status)
	s.logger.Info("compliance document reviewed",
		zap.String("company_code", companyCode),
		zap.String("participant_id", participantID),
		zap.String("application_id", app.ID),
		zap.String("status", string(req.Status)))

	stale := !s.dropOverview(ctx, companyCode)
	summary, err := s.Participant(ctx, companyCode, participantID)
	if err != nil {
		return nil, stale, err
	}
	return summary, stale, nil
}

func applyDecision(target *models.RawComplianceDocument, req dto.VerifyDocumentRequest, reviewer string, now time.Time) {
	target.VerificationStatus = string(req.Status)
	target.VerificationComment = strings.TrimSpace(req.Comment)
	target.LastVerifiedBy = reviewerName(req.ReviewerName, reviewer)
	target.LastVerifiedAt = now.Format(time.RFC3339)
	if req.Status == models.VerificationQueried {
		target.Status = string(models.StatusInvalid)
	}
}

func (s *ComplianceService) reloadApplication(ctx context.Context, id string) (*models.Application, error) {
	start := time.Now()
	app, err := s.apps.GetByID(ctx, id)
	s.metrics.ObserveStoreQuery("applications.get", time.Since(start))
	switch {
	case err == nil:
		return app, nil
	case errors.Is(err, repository.ErrApplicationNotFound):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	default:
		s.logger.Error("failed to reload application", zap.String("application_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
}

// dropOverview removes the company's cached overview, falling back to a pattern
// delete when the exact key cannot be removed. It reports whether either succeeded.
func (s *ComplianceService) dropOverview(ctx context.Context, companyCode string) bool {
	if s.cache == nil {
		return true
	}
	key := overviewCacheKey(companyCode)
	if err := s.cache.Delete(ctx, key); err == nil {
		return true
	}
	if err := s.cache.Invalidate(ctx, key+"*"); err != nil {
		s.logger.Error("overview cache left stale after verification",
			zap.String("company_code", companyCode),
			zap.Error(err))
		return false
	}
	return true
}

// Reminders builds notifier payloads for participants with outstanding issues.
func (s *ComplianceService) Reminders(ctx context.Context, companyCode string) ([]models.ReminderPayload, error) {
	overview, _, err := s.Overview(ctx, companyCode, OverviewOptions{})
	if err != nil {
		return nil, err
	}
	return compliance.BuildReminderPayloads(overview.Summaries), nil
}

func (s *ComplianceService) buildOverview(ctx context.Context, companyCode string) (*models.ComplianceOverview, error) {
	start := time.Now()
	apps, err := s.apps.ListAccepted(ctx, companyCode)
	s.metrics.ObserveStoreQuery("applications.list_accepted", time.Since(start))
	if err != nil {
		s.logger.Error("failed to list accepted applications", zap.String("company_code", companyCode), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}

	start = time.Now()
	participants, err := s.participants.ListByCompany(ctx, companyCode)
	s.metrics.ObserveStoreQuery("participants.list", time.Since(start))
	if err != nil {
		s.logger.Error("failed to list participants", zap.String("company_code", companyCode), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
	}
	byID := make(map[string]*models.Participant, len(participants))
	for i := range participants {
		byID[participants[i].ID] = &participants[i]
	}

	now := s.now().UTC()
	summaries := make([]models.ParticipantComplianceSummary, 0, len(apps))
	for _, app := range apps {
		summaries = append(summaries, s.summarize(app, byID[app.ParticipantID], now))
	}
	merged := compliance.MergeSummaries(summaries)

	return &models.ComplianceOverview{
		CompanyCode: companyCode,
		Summaries:   merged,
		Stats:       compliance.AggregateGlobalStats(merged),
		GeneratedAt: now,
	}, nil
}

func (s *ComplianceService) listParticipantApplications(ctx context.Context, companyCode, participantID string) ([]models.Application, error) {
	start := time.Now()
	apps, err := s.apps.ListByParticipant(ctx, companyCode, participantID)
	s.metrics.ObserveStoreQuery("applications.list_by_participant", time.Since(start))
	if err != nil {
		s.logger.Error("failed to list participant applications",
			zap.String("company_code", companyCode),
			zap.String("participant_id", participantID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}
	return apps, nil
}

func (s *ComplianceService) summarize(app models.Application, participant *models.Participant, now time.Time) models.ParticipantComplianceSummary {
	in := compliance.SummaryInput{
		ParticipantID:      app.ParticipantID,
		Name:               unnamedParticipant,
		Email:              app.Email,
		Documents:          app.ComplianceDocuments,
		Now:                now,
		ExpiringWindowDays: s.cfg.ExpiringWindowDays,
	}
	if name := strings.TrimSpace(app.BeneficiaryName); name != "" {
		in.Name = name
	}
	if participant != nil {
		if name := strings.TrimSpace(participant.BeneficiaryName); name != "" {
			in.Name = name
		}
		if email := strings.TrimSpace(participant.Email); email != "" {
			in.Email = email
		}
		in.Phone = participant.Phone
	}
	return compliance.BuildParticipantSummary(in)
}

// locateDocument finds the target by id first and by the normalized
// (type, documentName, expiry day) composite otherwise.
func locateDocument(apps []models.Application, req dto.VerifyDocumentRequest) (models.Application, int, bool) {
	if id := strings.TrimSpace(req.DocID); id != "" {
		for _, app := range apps {
			for i, doc := range app.ComplianceDocuments {
				if strings.TrimSpace(doc.ID) == id {
					return app, i, true
				}
			}
		}
	}
	if strings.TrimSpace(req.Type) == "" {
		return models.Application{}, 0, false
	}
	wantType := matchKey(req.Type)
	wantName := matchKey(req.DocumentName)
	wantExpiry := matchKey(req.ExpiryDate.String())
	for _, app := range apps {
		for i, doc := range app.ComplianceDocuments {
			if matchKey(doc.Type) == wantType &&
				matchKey(doc.DocumentName) == wantName &&
				matchKey(doc.ExpiryDate.String()) == wantExpiry {
				return app, i, true
			}
		}
	}
	return models.Application{}, 0, false
}

func matchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func reviewerName(requested, fallback string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if name := strings.TrimSpace(fallback); name != "" {
		return name
	}
	return "reviewer"
}

// PurgeCache drops every cached company overview.
func (s *ComplianceService) PurgeCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, overviewCacheKey("*"))
}
