package service

import (
	"fmt"
	"strings"

	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
)

// buildBody renders one consolidated message for a recipient: counts
// first, then per-alert detail with a recommendation each.
func buildBody(alerts []alertdomain.CovenantAlert) (subject, body string) {
	var breaches, approaching, trending, restored int
	for _, alert := range alerts {
		switch alert.AlertType {
		case alertdomain.TypeBreach:
			breaches++
		case alertdomain.TypeApproachingLimit:
			approaching++
		case alertdomain.TypeTrendingNegative:
			trending++
		case alertdomain.TypeComplianceRestored:
			restored++
		}
	}

	subject = fmt.Sprintf("Covenant compliance update: %d breach(es), %d approaching, %d trending", breaches, approaching, trending)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Covenant compliance update</h2>")
	fmt.Fprintf(&b, "<p>Breaches: %d &middot; Approaching limit: %d &middot; Trending negative: %d", breaches, approaching, trending)
	if restored > 0 {
		fmt.Fprintf(&b, " &middot; Restored: %d", restored)
	}
	b.WriteString("</p><ul>")

	for _, alert := range alerts {
		fmt.Fprintf(&b, "<li><strong>[%s] %s</strong>: %s", alert.Severity, alert.Title, alert.Message)
		if alert.ActualValue != nil && alert.ThresholdValue != nil {
			fmt.Fprintf(&b, " (actual %.2f vs threshold %.2f)", *alert.ActualValue, *alert.ThresholdValue)
		}
		fmt.Fprintf(&b, "<br/><em>%s</em></li>", recommendationFor(alert.AlertType))
	}
	b.WriteString("</ul>")

	return subject, b.String()
}

func recommendationFor(alertType alertdomain.AlertType) string {
	switch alertType {
	case alertdomain.TypeBreach:
		return "Contact the lender before the next reporting date and prepare a remediation plan."
	case alertdomain.TypeApproachingLimit:
		return "Review upcoming obligations and cash movements that could push this covenant over its limit."
	case alertdomain.TypeTrendingNegative:
		return "Investigate what is driving the deterioration before it reaches the threshold."
	case alertdomain.TypeComplianceRestored:
		return "No action needed; confirm the recovery holds in the next period."
	default:
		return "Review the covenant position with the engagement team."
	}
}
