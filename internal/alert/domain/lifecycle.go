package domain

import "time"

// Acknowledge returns a copy of alerts with the matching alert marked
// acknowledged. Re-acknowledging refreshes the user and timestamp; a
// resolved alert keeps its terminal state untouched apart from the
// acknowledgement fields.
func Acknowledge(alerts []CovenantAlert, alertID, userID string, now time.Time) []CovenantAlert {
	out := make([]CovenantAlert, len(alerts))
	copy(out, alerts)
	for i := range out {
		if out[i].ID != alertID {
			continue
		}
		ackAt := now
		out[i].AcknowledgedBy = userID
		out[i].AcknowledgedAt = &ackAt
	}
	return out
}

// Resolve returns a copy of alerts with the matching alert resolved.
// Resolution is terminal and idempotent: an already-resolved alert
// keeps its original resolution time.
func Resolve(alerts []CovenantAlert, alertID string, now time.Time) []CovenantAlert {
	out := make([]CovenantAlert, len(alerts))
	copy(out, alerts)
	for i := range out {
		if out[i].ID != alertID || out[i].ResolvedAt != nil {
			continue
		}
		resolvedAt := now
		out[i].ResolvedAt = &resolvedAt
		out[i].IsActive = false
	}
	return out
}

// Stats aggregates the collection. Active and acknowledged overlap;
// resolved excludes both.
func Stats(alerts []CovenantAlert) AlertStats {
	stats := AlertStats{
		BySeverity: make(map[Severity]int),
		ByType:     make(map[AlertType]int),
	}
	for _, alert := range alerts {
		stats.Total++
		stats.BySeverity[alert.Severity]++
		stats.ByType[alert.AlertType]++

		if alert.ResolvedAt != nil {
			stats.Resolved++
			continue
		}
		if alert.IsActive {
			stats.Active++
		}
		if alert.AcknowledgedAt != nil {
			stats.Acknowledged++
		}
	}
	return stats
}
