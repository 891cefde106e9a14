package compliance

import (
	"math"
	"strings"
	"time"

	"github.com/incubatehub/compliance-api/internal/models"
)

// SummaryInput carries everything needed to summarise one participant.
type SummaryInput struct {
	ParticipantID      string
	Name               string
	Email              string
	Phone              string
	Documents          []models.RawComplianceDocument
	Now                time.Time
	ExpiringWindowDays int
}

// Evaluate normalizes and resolves every raw document.
func Evaluate(raw []models.RawComplianceDocument, now time.Time, expiringWindowDays int) []models.ComplianceDocument {
	docs := make([]models.ComplianceDocument, 0, len(raw))
	for _, r := range raw {
		normalized := Normalize(r)
		docs = append(docs, models.ComplianceDocument{
			NormalizedDocument: normalized,
			EffectiveStatus:    ResolveStatus(normalized, now, expiringWindowDays),
		})
	}
	return docs
}

// ComputeCounts tallies one status bucket and one verification bucket per document.
func ComputeCounts(docs []models.ComplianceDocument) models.ComplianceCounts {
	var counts models.ComplianceCounts
	for _, doc := range docs {
		counts.Total++
		switch doc.EffectiveStatus {
		case models.StatusValid:
			counts.Valid++
		case models.StatusExpiring:
			counts.Expiring++
		case models.StatusExpired:
			counts.Expired++
		case models.StatusMissing:
			counts.Missing++
		case models.StatusInvalid:
			counts.Invalid++
		default:
			counts.Pending++
		}
		switch doc.VerificationStatusRaw {
		case models.VerificationVerified:
			counts.Verified++
		case models.VerificationQueried:
			counts.Queried++
		default:
			counts.Unverified++
		}
	}
	return counts
}

// ComputeComplianceScore is the rounded percentage of documents that are valid or verified.
func ComputeComplianceScore(docs []models.ComplianceDocument) int {
	if len(docs) == 0 {
		return 0
	}
	good := 0
	for _, doc := range docs {
		if doc.EffectiveStatus == models.StatusValid || doc.VerificationStatusRaw == models.VerificationVerified {
			good++
		}
	}
	return int(math.Round(100 * float64(good) / float64(len(docs))))
}

// ActionNeeded reports whether any document is not valid.
func ActionNeeded(docs []models.ComplianceDocument) bool {
	for _, doc := range docs {
		if NeedsAction(doc.EffectiveStatus) {
			return true
		}
	}
	return false
}

// LatestActivity returns the most recent lastVerifiedAt/uploadedAt across documents.
// Parsable values are compared as instants; when none parse the lexicographic
// maximum of the raw strings is returned with a nil time.
func LatestActivity(docs []models.ComplianceDocument) (string, *time.Time) {
	var (
		latestRaw string
		latest    *time.Time
		lexMax    string
	)
	for _, doc := range docs {
		for _, candidate := range []string{doc.LastVerifiedAt, doc.UploadedAt} {
			value := strings.TrimSpace(candidate)
			if value == "" {
				continue
			}
			if value > lexMax {
				lexMax = value
			}
			if t, ok := models.ISODate(value).Time(); ok && (latest == nil || t.After(*latest)) {
				parsed := t
				latest = &parsed
				latestRaw = value
			}
		}
	}
	if latest != nil {
		return latestRaw, latest
	}
	return lexMax, nil
}

// BuildParticipantSummary runs normalize, resolve, counts, score, action and activity for one participant.
func BuildParticipantSummary(in SummaryInput) models.ParticipantComplianceSummary {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	docs := Evaluate(in.Documents, now, in.ExpiringWindowDays)
	activityRaw, activityAt := LatestActivity(docs)

	return models.ParticipantComplianceSummary{
		ParticipantID:   in.ParticipantID,
		Name:            in.Name,
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		Documents:       docs,
		Counts:          ComputeCounts(docs),
		ComplianceScore: ComputeComplianceScore(docs),
		ActionNeeded:    ActionNeeded(docs),
		LastActivity:    activityRaw,
		LastActivityAt:  activityAt,
	}
}

// AggregateGlobalStats sums counts and averages scores across participants.
func AggregateGlobalStats(summaries []models.ParticipantComplianceSummary) models.GlobalComplianceStats {
	stats := models.GlobalComplianceStats{Participants: len(summaries)}
	if len(summaries) == 0 {
		return stats
	}

	scoreSum := 0
	for _, summary := range summaries {
		stats.Counts.Add(summary.Counts)
		scoreSum += summary.ComplianceScore
		if summary.ActionNeeded {
			stats.ActionNeededCount++
		}
	}
	stats.TotalDocuments = stats.Counts.Total
	stats.AvgComplianceScore = int(math.Round(float64(scoreSum) / float64(len(summaries))))
	return stats
}
