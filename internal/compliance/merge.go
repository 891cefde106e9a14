package compliance

import (
	"math"
	"strings"

	"github.com/incubatehub/compliance-api/internal/models"
)

// MergeSummaries collapses summaries sharing a participant id, keeping first-seen order.
// Documents are concatenated, counts and the action flag are recomputed, and
// scores are averaged pairwise in encounter order.
func MergeSummaries(summaries []models.ParticipantComplianceSummary) []models.ParticipantComplianceSummary {
	merged := make([]models.ParticipantComplianceSummary, 0, len(summaries))
	index := make(map[string]int, len(summaries))

	for _, summary := range summaries {
		pos, seen := index[summary.ParticipantID]
		if !seen {
			index[summary.ParticipantID] = len(merged)
			merged = append(merged, summary)
			continue
		}
		merged[pos] = mergePair(merged[pos], summary)
	}
	return merged
}

func mergePair(a, b models.ParticipantComplianceSummary) models.ParticipantComplianceSummary {
	docs := make([]models.ComplianceDocument, 0, len(a.Documents)+len(b.Documents))
	docs = append(docs, a.Documents...)
	docs = append(docs, b.Documents...)

	out := a
	out.Documents = docs
	out.Counts = ComputeCounts(docs)
	out.ActionNeeded = ActionNeeded(docs)
	out.ComplianceScore = int(math.Round(float64(a.ComplianceScore+b.ComplianceScore) / 2))
	out.Name = firstNonEmpty(a.Name, b.Name)
	out.Email = firstNonEmpty(a.Email, b.Email)
	out.Phone = firstNonEmpty(a.Phone, b.Phone)

	switch {
	case a.LastActivityAt != nil && b.LastActivityAt != nil:
		if b.LastActivityAt.After(*a.LastActivityAt) {
			out.LastActivity, out.LastActivityAt = b.LastActivity, b.LastActivityAt
		}
	case b.LastActivityAt != nil:
		out.LastActivity, out.LastActivityAt = b.LastActivity, b.LastActivityAt
	case a.LastActivityAt == nil && b.LastActivity > a.LastActivity:
		out.LastActivity = b.LastActivity
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
