package compliance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incubatehub/compliance-api/internal/models"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rawDoc(status, url, verification string, expiry models.DateLike) models.RawComplianceDocument {
	return models.RawComplianceDocument{
		ParticipantID:      "p-1",
		Type:               "Tax Clearance",
		Status:             status,
		URL:                url,
		VerificationStatus: verification,
		ExpiryDate:         expiry,
	}
}

func evaluated(status, url, verification string, expiry models.DateLike) models.ComplianceDocument {
	return Evaluate([]models.RawComplianceDocument{rawDoc(status, url, verification, expiry)}, testNow, 30)[0]
}

func TestNormalizeNeverFails(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"type":"BBBEE","expiryDate":"not a date","issueDate":""}`,
		`{"expiryDate":1706659200000}`,
		`{"expiryDate":{"seconds":1706659200,"nanoseconds":0}}`,
		`{"expiryDate":{"_seconds":1706659200,"_nanoseconds":0}}`,
		`{"expiryDate":{"unexpected":true}}`,
		`{"expiryDate":true,"issueDate":[1,2,3]}`,
		`{"expiryDate":null,"status":"   ","verificationStatus":"Approved by CEO"}`,
	}

	for _, input := range inputs {
		var raw models.RawComplianceDocument
		require.NoError(t, json.Unmarshal([]byte(input), &raw), input)

		var normalized models.NormalizedDocument
		assert.NotPanics(t, func() { normalized = Normalize(raw) }, input)
		assert.NotEmpty(t, normalized.StatusRaw, input)
		assert.Contains(t, []models.VerificationStatus{
			models.VerificationVerified,
			models.VerificationQueried,
			models.VerificationUnverified,
		}, normalized.VerificationStatusRaw, input)
	}
}

func TestNormalizeFields(t *testing.T) {
	raw := rawDoc("  VALID ", "https://files/doc.pdf", " Verified ", models.EpochDate(1706659200000))
	raw.IssueDate = models.ISODate("garbage")

	normalized := Normalize(raw)
	assert.Equal(t, "valid", normalized.StatusRaw)
	assert.Equal(t, models.VerificationVerified, normalized.VerificationStatusRaw)
	assert.Equal(t, "  VALID ", normalized.Status)
	require.NotNil(t, normalized.Expiry)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *normalized.Expiry)
	assert.Nil(t, normalized.Issue)
	assert.True(t, normalized.HasFile)

	normalized = Normalize(rawDoc("", "", "pending review", models.DateLike{}))
	assert.Equal(t, "pending", normalized.StatusRaw)
	assert.Equal(t, models.VerificationUnverified, normalized.VerificationStatusRaw)
	assert.Equal(t, "pending review", normalized.VerificationStatus)
	assert.False(t, normalized.HasFile)

	normalized = Normalize(rawDoc("Missing", "https://files/doc.pdf", "", models.DateLike{}))
	assert.False(t, normalized.HasFile)
}

func TestNormalizeTimestampWrappers(t *testing.T) {
	seconds := testNow.Unix()
	for _, expiry := range []models.DateLike{
		models.TimestampDate(models.Timestamp{Seconds: seconds}),
		models.NativeDate(testNow),
		models.EpochDate(float64(testNow.UnixMilli())),
		models.ISODate("2024-01-01T00:00:00Z"),
	} {
		normalized := Normalize(rawDoc("valid", "u", "", expiry))
		require.NotNil(t, normalized.Expiry)
		assert.True(t, testNow.Equal(*normalized.Expiry))
	}
}

func TestResolveStatusQueriedDominates(t *testing.T) {
	doc := evaluated("valid", "https://files/doc.pdf", "queried", models.ISODate("2014-01-01"))
	assert.Equal(t, models.StatusInvalid, doc.EffectiveStatus)

	doc = evaluated("missing", "", "QUERIED", models.DateLike{})
	assert.Equal(t, models.StatusInvalid, doc.EffectiveStatus)
}

func TestResolveStatusMissingBeforeDates(t *testing.T) {
	doc := evaluated("valid", "", "unverified", models.ISODate("2030-01-01"))
	assert.Equal(t, models.StatusMissing, doc.EffectiveStatus)

	doc = evaluated("missing", "https://files/doc.pdf", "", models.ISODate("2030-01-01"))
	assert.Equal(t, models.StatusMissing, doc.EffectiveStatus)
}

func TestResolveStatusExpiryWindow(t *testing.T) {
	cases := []struct {
		name   string
		expiry string
		want   models.EffectiveStatus
	}{
		{name: "last day of window", expiry: "2024-01-31", want: models.StatusExpiring},
		{name: "beyond window falls back to stored status", expiry: "2024-02-01", want: models.StatusValid},
		{name: "yesterday", expiry: "2023-12-31", want: models.StatusExpired},
		{name: "today", expiry: "2024-01-01", want: models.StatusExpiring},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Normalize(rawDoc("valid", "https://files/doc.pdf", "", models.ISODate(tc.expiry)))
			assert.Equal(t, tc.want, ResolveStatus(doc, testNow, 30))
		})
	}
}

func TestResolveStatusDayGranularity(t *testing.T) {
	doc := Normalize(rawDoc("valid", "u", "", models.ISODate("2024-01-01T00:00:00Z")))
	lateInDay := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, models.StatusExpiring, ResolveStatus(doc, lateInDay, 30))
}

func TestResolveStatusDefaultWindow(t *testing.T) {
	doc := Normalize(rawDoc("valid", "u", "", models.ISODate("2024-01-20")))
	assert.Equal(t, models.StatusExpiring, ResolveStatus(doc, testNow, 0))
	assert.Equal(t, models.StatusValid, ResolveStatus(doc, testNow, 7))
}

func TestResolveStatusFallbacks(t *testing.T) {
	assert.Equal(t, models.StatusValid, evaluated("valid", "u", "", models.DateLike{}).EffectiveStatus)
	assert.Equal(t, models.StatusExpired, evaluated("Expired", "u", "", models.DateLike{}).EffectiveStatus)
	assert.Equal(t, models.StatusPending, evaluated("under review", "u", "", models.DateLike{}).EffectiveStatus)
	assert.Equal(t, models.StatusPending, evaluated("", "u", "", models.ISODate("no idea")).EffectiveStatus)
}

func TestComputeComplianceScore(t *testing.T) {
	assert.Equal(t, 0, ComputeComplianceScore(nil))

	docs := []models.ComplianceDocument{
		evaluated("valid", "u", "", models.DateLike{}),
		evaluated("valid", "u", "verified", models.ISODate("2023-06-01")),
		evaluated("valid", "", "unverified", models.DateLike{}),
	}
	require.Equal(t, models.StatusExpired, docs[1].EffectiveStatus)
	require.Equal(t, models.StatusMissing, docs[2].EffectiveStatus)
	assert.Equal(t, 67, ComputeComplianceScore(docs))
}

func TestComputeCountsInvariant(t *testing.T) {
	docs := []models.ComplianceDocument{
		evaluated("valid", "u", "verified", models.DateLike{}),
		evaluated("valid", "u", "", models.ISODate("2024-01-10")),
		evaluated("valid", "u", "", models.ISODate("2023-01-10")),
		evaluated("", "", "", models.DateLike{}),
		evaluated("whatever", "u", "", models.DateLike{}),
		evaluated("valid", "u", "queried", models.DateLike{}),
		evaluated("invalid", "u", "nonsense", models.DateLike{}),
	}

	counts := ComputeCounts(docs)
	assert.Equal(t, len(docs), counts.Total)
	assert.Equal(t, counts.Total, counts.StatusSum())
	assert.Equal(t, counts.Total, counts.VerificationSum())
	assert.Equal(t, 1, counts.Valid)
	assert.Equal(t, 1, counts.Expiring)
	assert.Equal(t, 1, counts.Expired)
	assert.Equal(t, 1, counts.Missing)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 2, counts.Invalid)
	assert.Equal(t, 1, counts.Verified)
	assert.Equal(t, 1, counts.Queried)
	assert.Equal(t, 5, counts.Unverified)

	assert.Equal(t, models.ComplianceCounts{}, ComputeCounts(nil))
}

func TestBuildParticipantSummaryActionNeeded(t *testing.T) {
	allValid := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-1",
		Name:          "Acme",
		Email:         " ops@acme.test ",
		Documents: []models.RawComplianceDocument{
			rawDoc("valid", "u", "", models.DateLike{}),
			rawDoc("valid", "u", "verified", models.ISODate("2025-01-01")),
		},
		Now: testNow,
	})
	assert.False(t, allValid.ActionNeeded)
	assert.Equal(t, 100, allValid.ComplianceScore)
	assert.Equal(t, "ops@acme.test", allValid.Email)
	assert.Equal(t, 2, allValid.Counts.Total)

	oneExpiring := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-2",
		Documents: []models.RawComplianceDocument{
			rawDoc("valid", "u", "", models.DateLike{}),
			rawDoc("valid", "u", "", models.ISODate("2024-01-15")),
		},
		Now: testNow,
	})
	assert.True(t, oneExpiring.ActionNeeded)
	assert.Equal(t, 50, oneExpiring.ComplianceScore)

	empty := BuildParticipantSummary(SummaryInput{ParticipantID: "p-3", Now: testNow})
	assert.False(t, empty.ActionNeeded)
	assert.Equal(t, 0, empty.ComplianceScore)
	assert.NotNil(t, empty.Documents)
}

func TestLatestActivityComparesInstants(t *testing.T) {
	older := rawDoc("valid", "u", "", models.DateLike{})
	older.LastVerifiedAt = "Wed, 10 Jan 2024 09:00:00 +0000"
	newer := rawDoc("valid", "u", "", models.DateLike{})
	newer.UploadedAt = "2024-03-15T09:00:00Z"

	summary := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-1",
		Documents:     []models.RawComplianceDocument{older, newer},
		Now:           testNow,
	})

	require.NotNil(t, summary.LastActivityAt)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), *summary.LastActivityAt)
	assert.Equal(t, "2024-03-15T09:00:00Z", summary.LastActivity)
}

func TestLatestActivityFallsBackToLexicographicMax(t *testing.T) {
	a := rawDoc("valid", "u", "", models.DateLike{})
	a.UploadedAt = "week 3"
	b := rawDoc("valid", "u", "", models.DateLike{})
	b.LastVerifiedAt = "week 12"

	raw, at := LatestActivity(Evaluate([]models.RawComplianceDocument{a, b}, testNow, 30))
	assert.Nil(t, at)
	assert.Equal(t, "week 3", raw)

	raw, at = LatestActivity(nil)
	assert.Nil(t, at)
	assert.Empty(t, raw)
}

func TestAggregateGlobalStats(t *testing.T) {
	assert.Equal(t, models.GlobalComplianceStats{}, AggregateGlobalStats(nil))

	summaries := []models.ParticipantComplianceSummary{
		{ParticipantID: "a", ComplianceScore: 100, Counts: models.ComplianceCounts{Valid: 2, Total: 2, Verified: 2}},
		{ParticipantID: "b", ComplianceScore: 50, ActionNeeded: true, Counts: models.ComplianceCounts{Valid: 1, Missing: 1, Total: 2, Unverified: 2}},
	}
	stats := AggregateGlobalStats(summaries)
	assert.Equal(t, 2, stats.Participants)
	assert.Equal(t, 4, stats.TotalDocuments)
	assert.Equal(t, 75, stats.AvgComplianceScore)
	assert.Equal(t, 1, stats.ActionNeededCount)
	assert.Equal(t, 3, stats.Counts.Valid)
	assert.Equal(t, 1, stats.Counts.Missing)
	assert.Equal(t, 2, stats.Counts.Verified)
}

func TestMergeSummariesConcatenatesDocuments(t *testing.T) {
	first := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-1",
		Name:          "",
		Documents: []models.RawComplianceDocument{
			rawDoc("valid", "u", "", models.DateLike{}),
			rawDoc("valid", "u", "", models.DateLike{}),
		},
		Now: testNow,
	})
	second := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-1",
		Name:          "Acme",
		Email:         "ops@acme.test",
		Documents: []models.RawComplianceDocument{
			rawDoc("valid", "u", "", models.DateLike{}),
			rawDoc("", "", "", models.DateLike{}),
			rawDoc("valid", "u", "", models.DateLike{}),
		},
		Now: testNow,
	})
	other := BuildParticipantSummary(SummaryInput{ParticipantID: "p-2", Now: testNow})

	merged := MergeSummaries([]models.ParticipantComplianceSummary{first, other, second})
	require.Len(t, merged, 2)
	assert.Equal(t, "p-1", merged[0].ParticipantID)
	assert.Equal(t, "p-2", merged[1].ParticipantID)

	assert.Len(t, merged[0].Documents, 5)
	assert.Equal(t, 5, merged[0].Counts.Total)
	assert.Equal(t, 1, merged[0].Counts.Missing)
	assert.True(t, merged[0].ActionNeeded)
	assert.Equal(t, 84, merged[0].ComplianceScore)
	assert.Equal(t, "Acme", merged[0].Name)
	assert.Equal(t, "ops@acme.test", merged[0].Email)
}

func TestMergeSummariesAveragesPairwise(t *testing.T) {
	merged := MergeSummaries([]models.ParticipantComplianceSummary{
		{ParticipantID: "p", ComplianceScore: 100},
		{ParticipantID: "p", ComplianceScore: 0},
		{ParticipantID: "p", ComplianceScore: 50},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, 50, merged[0].ComplianceScore)
}

func TestMergeSummariesKeepsLatestActivity(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	merged := MergeSummaries([]models.ParticipantComplianceSummary{
		{ParticipantID: "p", LastActivity: "2024-02-01", LastActivityAt: &late},
		{ParticipantID: "p", LastActivity: "2024-01-01", LastActivityAt: &early},
		{ParticipantID: "q", LastActivity: "b"},
		{ParticipantID: "q", LastActivity: "c"},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, late, *merged[0].LastActivityAt)
	assert.Equal(t, "c", merged[1].LastActivity)
}

func TestBuildReminderPayloads(t *testing.T) {
	withIssues := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-1",
		Name:          "Acme",
		Email:         "ops@acme.test",
		Documents: []models.RawComplianceDocument{
			{Type: "Tax Clearance", DocumentName: "tax.pdf", Status: "valid", URL: "u"},
			{Type: "BBBEE", DocumentName: "bee.pdf", Status: "valid", URL: "u", ExpiryDate: models.ISODate("2023-11-30")},
			{Type: "CIPC", Status: "valid"},
		},
		Now: testNow,
	})
	noEmail := withIssues
	noEmail.ParticipantID = "p-2"
	noEmail.Email = ""
	allValid := BuildParticipantSummary(SummaryInput{
		ParticipantID: "p-3",
		Email:         "fine@acme.test",
		Documents:     []models.RawComplianceDocument{{Type: "Tax", Status: "valid", URL: "u"}},
		Now:           testNow,
	})

	payloads := BuildReminderPayloads([]models.ParticipantComplianceSummary{withIssues, noEmail, allValid})
	require.Len(t, payloads, 1)
	assert.Equal(t, "ops@acme.test", payloads[0].Email)
	assert.Equal(t, "Acme", payloads[0].Name)
	assert.Equal(t, []models.ReminderIssue{
		{Type: "BBBEE", Status: models.StatusExpired, DocumentName: "bee.pdf"},
		{Type: "CIPC", Status: models.StatusMissing},
	}, payloads[0].Issues)

	assert.Empty(t, BuildReminderPayloads(nil))
}
