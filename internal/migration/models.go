package migration

import (
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	companydomain "github.com/smallbiznis/covena/internal/company/domain"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	notificationdomain "github.com/smallbiznis/covena/internal/notification/domain"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&companydomain.Company{},
		&covenantdomain.CovenantConfig{},
		&ratiodomain.RatioSnapshot{},
		&resultdomain.CovenantTestResult{},
		&alertdomain.CovenantAlert{},
		&alertdomain.CovenantAlertConfig{},
		&notificationdomain.NotificationIntent{},
		&notificationdomain.InAppMessage{},
		&auditdomain.AuditEntry{},
	}
}
