package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/dto"
	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/internal/repository"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
)

type fakeApplicationStore struct {
	apps      []models.Application
	listErr   error
	updateErr error
	getErr    error

	// stored, when set, is what GetByID returns in place of the listed copy.
	stored map[string]models.Application

	gets    []string
	updates []applicationUpdate
}

type applicationUpdate struct {
	id       string
	docs     models.ComplianceDocumentList
	expected int64
}

func (f *fakeApplicationStore) ListAccepted(_ context.Context, companyCode string) ([]models.Application, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Application
	for _, app := range f.apps {
		if app.CompanyCode == companyCode && app.ApplicationStatus == models.ApplicationStatusAccepted {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplicationStore) ListByParticipant(ctx context.Context, companyCode, participantID string) ([]models.Application, error) {
	all, err := f.ListAccepted(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	var out []models.Application
	for _, app := range all {
		if app.ParticipantID == participantID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplicationStore) GetByID(_ context.Context, id string) (*models.Application, error) {
	f.gets = append(f.gets, id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if app, ok := f.stored[id]; ok {
		return &app, nil
	}
	for i := range f.apps {
		if f.apps[i].ID == id {
			app := f.apps[i]
			return &app, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func (f *fakeApplicationStore) UpdateComplianceDocuments(_ context.Context, id string, docs models.ComplianceDocumentList, expected int64) (int64, error) {
	f.updates = append(f.updates, applicationUpdate{id: id, docs: docs, expected: expected})
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	for i := range f.apps {
		if f.apps[i].ID != id {
			continue
		}
		if expected >= 0 && f.apps[i].Revision != expected {
			return 0, repository.ErrRevisionConflict
		}
		f.apps[i].ComplianceDocuments = docs
		f.apps[i].Revision++
		return f.apps[i].Revision, nil
	}
	return 0, repository.ErrApplicationNotFound
}

type fakeParticipantStore struct {
	participants []models.Participant
	err          error
}

func (f *fakeParticipantStore) ListByCompany(_ context.Context, companyCode string) ([]models.Participant, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Participant
	for _, p := range f.participants {
		if p.CompanyCode == companyCode {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantStore) GetByID(_ context.Context, id string) (*models.Participant, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.participants {
		if f.participants[i].ID == id {
			p := f.participants[i]
			return &p, nil
		}
	}
	return nil, repository.ErrParticipantNotFound
}

type memoryCacheRepo struct {
	mu         sync.Mutex
	entries    map[string][]byte
	deleted    []string
	patterns   []string
	deleteErr  error
	patternErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, key := range keys {
		delete(m.entries, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	if m.patternErr != nil {
		return m.patternErr
	}
	m.entries = map[string][]byte{}
	return nil
}

var complianceNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func seedApplications() []models.Application {
	return []models.Application{
		{
			ID:                "app-1",
			ParticipantID:     "p-1",
			CompanyCode:       "ACME",
			ApplicationStatus: models.ApplicationStatusAccepted,
			BeneficiaryName:   "Fallback Name",
			Revision:          2,
			ComplianceDocuments: models.ComplianceDocumentList{
				{ID: "doc-1", Type: "tax_clearance", Status: "Valid", URL: "https://files/tax.pdf", ExpiryDate: models.ISODate("2025-01-01")},
				{Type: "bbbee", DocumentName: "BBBEE Certificate", URL: "https://files/bbbee.pdf", ExpiryDate: models.ISODate("2024-06-20")},
			},
		},
		{
			ID:                "app-2",
			ParticipantID:     "p-1",
			CompanyCode:       "ACME",
			ApplicationStatus: models.ApplicationStatusAccepted,
			ComplianceDocuments: models.ComplianceDocumentList{
				{ID: "doc-3", Type: "cipc", Status: "missing"},
			},
		},
		{
			ID:                "app-3",
			ParticipantID:     "p-2",
			CompanyCode:       "ACME",
			ApplicationStatus: models.ApplicationStatusAccepted,
			BeneficiaryName:   "Bravo Ltd",
			ComplianceDocuments: models.ComplianceDocumentList{
				{ID: "doc-4", Type: "tax_clearance", Status: "valid", URL: "https://files/b.pdf", ExpiryDate: models.EpochDate(float64(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))},
			},
		},
		{
			ID:                "app-4",
			ParticipantID:     "p-3",
			CompanyCode:       "ACME",
			ApplicationStatus: "rejected",
		},
		{
			ID:                "app-5",
			ParticipantID:     "p-9",
			CompanyCode:       "OTHER",
			ApplicationStatus: models.ApplicationStatusAccepted,
		},
	}
}

func newTestComplianceService(apps *fakeApplicationStore, participants *fakeParticipantStore, cache *CacheService, locking bool) *ComplianceService {
	svc := NewComplianceService(ComplianceServiceParams{
		Applications: apps,
		Participants: participants,
		Cache:        cache,
		Logger:       zap.NewNop(),
		Config:       ComplianceServiceConfig{OptimisticLocking: locking},
	})
	svc.now = func() time.Time { return complianceNow }
	return svc
}

func defaultParticipants() *fakeParticipantStore {
	return &fakeParticipantStore{participants: []models.Participant{
		{ID: "p-1", CompanyCode: "ACME", BeneficiaryName: "Alpha Co", Email: " alpha@example.com ", Phone: "0123"},
	}}
}

func TestComplianceServiceOverviewMergesAndAggregates(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{apps: seedApplications()}, defaultParticipants(), nil, true)

	overview, hit, err := svc.Overview(context.Background(), "ACME", OverviewOptions{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, overview.Summaries, 2)

	alpha := overview.Summaries[0]
	assert.Equal(t, "p-1", alpha.ParticipantID)
	assert.Equal(t, "Alpha Co", alpha.Name)
	assert.Equal(t, "alpha@example.com", alpha.Email)
	assert.Equal(t, "0123", alpha.Phone)
	require.Len(t, alpha.Documents, 3)
	assert.Equal(t, models.StatusValid, alpha.Documents[0].EffectiveStatus)
	assert.Equal(t, models.StatusExpiring, alpha.Documents[1].EffectiveStatus)
	assert.Equal(t, models.StatusMissing, alpha.Documents[2].EffectiveStatus)
	assert.True(t, alpha.ActionNeeded)
	assert.Equal(t, 3, alpha.Counts.Total)

	bravo := overview.Summaries[1]
	assert.Equal(t, "Bravo Ltd", bravo.Name)
	assert.Equal(t, 100, bravo.ComplianceScore)
	assert.False(t, bravo.ActionNeeded)

	assert.Equal(t, 2, overview.Stats.Participants)
	assert.Equal(t, 4, overview.Stats.TotalDocuments)
	assert.Equal(t, 1, overview.Stats.ActionNeededCount)
	assert.Equal(t, overview.Stats.Counts.Total, overview.Stats.Counts.StatusSum())
	assert.Equal(t, complianceNow, overview.GeneratedAt)
}

func TestComplianceServiceOverviewUsesCache(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := newTestComplianceService(apps, defaultParticipants(), cache, true)

	_, hit, err := svc.Overview(context.Background(), "ACME", OverviewOptions{})
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := svc.Overview(context.Background(), "ACME", OverviewOptions{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, cached.Summaries, 2)

	_, hit, err = svc.Overview(context.Background(), "ACME", OverviewOptions{Refresh: true})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestComplianceServiceOverviewStoreFailureLeavesCache(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestComplianceService(apps, defaultParticipants(), cache, true)

	first, _, err := svc.Overview(context.Background(), "ACME", OverviewOptions{})
	require.NoError(t, err)

	apps.listErr = assert.AnError
	_, _, err = svc.Overview(context.Background(), "ACME", OverviewOptions{Refresh: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	var stored models.ComplianceOverview
	require.NoError(t, repo.Get(context.Background(), "compliance:ACME", &stored))
	assert.Len(t, stored.Summaries, len(first.Summaries))
}

func TestComplianceServiceOverviewRequiresCompany(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{}, &fakeParticipantStore{}, nil, true)
	_, _, err := svc.Overview(context.Background(), "  ", OverviewOptions{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestComplianceServiceParticipantNotFound(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{apps: seedApplications()}, defaultParticipants(), nil, true)

	_, err := svc.Participant(context.Background(), "ACME", "p-3")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Participant(context.Background(), "OTHER", "p-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplianceServiceParticipantWithoutRecordFallsBackToApplicationName(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{apps: seedApplications()}, &fakeParticipantStore{}, nil, true)

	summary, err := svc.Participant(context.Background(), "ACME", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Fallback Name", summary.Name)
	assert.Len(t, summary.Documents, 3)
}

func TestComplianceServiceVerifyByID(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestComplianceService(apps, defaultParticipants(), cache, true)
	_, _, err := svc.Overview(context.Background(), "ACME", OverviewOptions{})
	require.NoError(t, err)

	summary, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-1",
		Status:        models.VerificationVerified,
		Comment:       " looks good ",
	}, "Jane Reviewer")
	require.NoError(t, err)

	require.Len(t, apps.updates, 1)
	update := apps.updates[0]
	assert.Equal(t, "app-1", update.id)
	assert.Equal(t, int64(2), update.expected)
	require.Len(t, update.docs, 2)
	assert.Equal(t, "verified", update.docs[0].VerificationStatus)
	assert.Equal(t, "looks good", update.docs[0].VerificationComment)
	assert.Equal(t, "Jane Reviewer", update.docs[0].LastVerifiedBy)
	assert.Equal(t, complianceNow.Format(time.RFC3339), update.docs[0].LastVerifiedAt)
	assert.Empty(t, update.docs[1].VerificationStatus)

	assert.Contains(t, repo.deleted, "compliance:ACME")
	assert.Equal(t, models.VerificationVerified, summary.Documents[0].VerificationStatusRaw)
	assert.Equal(t, complianceNow.Format(time.RFC3339), summary.LastActivity)
}

func TestComplianceServiceVerifyByCompositeKeyQueries(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, true)

	summary, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		Type:          " BBBEE ",
		DocumentName:  "bbbee certificate",
		ExpiryDate:    models.EpochDate(float64(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC).UnixMilli())),
		Status:        models.VerificationQueried,
		ReviewerName:  "Sam",
	}, "Jane Reviewer")
	require.NoError(t, err)

	require.Len(t, apps.updates, 1)
	target := apps.updates[0].docs[1]
	assert.Equal(t, "queried", target.VerificationStatus)
	assert.Equal(t, "invalid", target.Status)
	assert.Equal(t, "Sam", target.LastVerifiedBy)
	assert.Equal(t, models.StatusInvalid, summary.Documents[1].EffectiveStatus)
}

func TestComplianceServiceVerifyDocumentNotFound(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, true)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "nope",
		Status:        models.VerificationVerified,
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, apps.updates)

	_, _, err = svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-3",
		DocID:         "doc-1",
		Status:        models.VerificationVerified,
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplianceServiceVerifyRejectsInvalidPayload(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{}, &fakeParticipantStore{}, nil, true)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-1",
		Status:        models.VerificationUnverified,
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		Status:        models.VerificationVerified,
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestComplianceServiceVerifyRevisionConflict(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications(), updateErr: repository.ErrRevisionConflict}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, true)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-1",
		Status:        models.VerificationVerified,
	}, "Jane")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestComplianceServiceVerifyWithoutLockingSkipsRevision(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, false)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-3",
		Status:        models.VerificationVerified,
	}, "")
	require.NoError(t, err)
	require.Len(t, apps.updates, 1)
	assert.Equal(t, "app-2", apps.updates[0].id)
	assert.Equal(t, repository.NoRevisionCheck, apps.updates[0].expected)
	assert.Equal(t, "reviewer", apps.updates[0].docs[0].LastVerifiedBy)
	assert.Equal(t, []string{"app-2"}, apps.gets)
}

func TestComplianceServiceVerifyWithoutLockingStartsFromStoredCopy(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	apps.stored = map[string]models.Application{
		"app-2": {
			ID:                "app-2",
			ParticipantID:     "p-1",
			CompanyCode:       "ACME",
			ApplicationStatus: models.ApplicationStatusAccepted,
			ComplianceDocuments: models.ComplianceDocumentList{
				{ID: "doc-5", Type: "vat", Status: "valid", URL: "https://files/vat.pdf"},
				{ID: "doc-3", Type: "cipc", Status: "missing"},
			},
		},
	}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, false)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-3",
		Status:        models.VerificationVerified,
	}, "Jane")
	require.NoError(t, err)

	require.Len(t, apps.updates, 1)
	docs := apps.updates[0].docs
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-5", docs[0].ID)
	assert.Empty(t, docs[0].VerificationStatus)
	assert.Equal(t, "doc-3", docs[1].ID)
	assert.Equal(t, "verified", docs[1].VerificationStatus)
}

func TestComplianceServiceVerifyWithoutLockingReloadFailures(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications(), getErr: repository.ErrApplicationNotFound}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, false)
	req := dto.VerifyDocumentRequest{CompanyCode: "ACME", ParticipantID: "p-1", DocID: "doc-3", Status: models.VerificationVerified}

	_, _, err := svc.VerifyDocument(context.Background(), req, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	apps.getErr = assert.AnError
	_, _, err = svc.VerifyDocument(context.Background(), req, "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	apps.getErr = nil
	apps.stored = map[string]models.Application{"app-2": {ID: "app-2", ParticipantID: "p-1", CompanyCode: "ACME"}}
	_, _, err = svc.VerifyDocument(context.Background(), req, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, apps.updates)
}

func TestComplianceServiceVerifyLockingSkipsReload(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, true)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode: "ACME", ParticipantID: "p-1", DocID: "doc-1", Status: models.VerificationVerified,
	}, "")
	require.NoError(t, err)
	assert.Empty(t, apps.gets)
}

func TestComplianceServiceVerifyFallsBackToPatternInvalidation(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications()}
	repo := newMemoryCacheRepo()
	repo.deleteErr = assert.AnError
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestComplianceService(apps, defaultParticipants(), cache, true)
	req := dto.VerifyDocumentRequest{CompanyCode: "ACME", ParticipantID: "p-1", DocID: "doc-1", Status: models.VerificationVerified}

	_, stale, err := svc.VerifyDocument(context.Background(), req, "")
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, []string{"compliance:ACME*"}, repo.patterns)

	repo.patternErr = assert.AnError
	apps.apps = seedApplications()
	summary, stale, err := svc.VerifyDocument(context.Background(), req, "")
	require.NoError(t, err)
	assert.True(t, stale)
	require.NotNil(t, summary)
}

func TestComplianceServiceVerifyStoreFailure(t *testing.T) {
	apps := &fakeApplicationStore{apps: seedApplications(), updateErr: assert.AnError}
	svc := newTestComplianceService(apps, defaultParticipants(), nil, true)

	_, _, err := svc.VerifyDocument(context.Background(), dto.VerifyDocumentRequest{
		CompanyCode:   "ACME",
		ParticipantID: "p-1",
		DocID:         "doc-1",
		Status:        models.VerificationVerified,
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestComplianceServiceReminders(t *testing.T) {
	svc := newTestComplianceService(&fakeApplicationStore{apps: seedApplications()}, defaultParticipants(), nil, true)

	reminders, err := svc.Reminders(context.Background(), "ACME")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "p-1", reminders[0].ParticipantID)
	assert.Equal(t, "alpha@example.com", reminders[0].Email)
	assert.Len(t, reminders[0].Issues, 2)
}
