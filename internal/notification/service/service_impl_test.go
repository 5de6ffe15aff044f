package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	auditrepository "github.com/smallbiznis/covena/internal/audit/repository"
	auditservice "github.com/smallbiznis/covena/internal/audit/service"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/config"
	"github.com/smallbiznis/covena/internal/notification/domain"
	"github.com/smallbiznis/covena/internal/notification/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type emailStub struct {
	failures int
	sent     [][]string
}

func (e *emailStub) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if e.failures > 0 {
		e.failures--
		return errors.New("smtp unavailable")
	}
	e.sent = append(e.sent, to)
	return nil
}

func newTestService(t *testing.T, stub *emailStub) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(
		&domain.NotificationIntent{},
		&domain.InAppMessage{},
		&auditdomain.AuditEntry{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	audit := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   log,
		Clock: fake,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := New(Params{
		DB:     db,
		Log:    log,
		Clock:  fake,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicyConfig()),
		Repo:   repository.Provide(),
		Email:  stub,
		Audit:  audit,
	}).(*Service)

	return svc, db
}

func sampleAlert(id string) alertdomain.CovenantAlert {
	actual := 2.0
	threshold := 3.0
	amount := 1.0
	return alertdomain.CovenantAlert{
		ID:               id,
		CovenantConfigID: 1,
		CompanyID:        9,
		AlertType:        alertdomain.TypeBreach,
		Severity:         alertdomain.SeverityHigh,
		Title:            "Covenant breach",
		Message:          "Covenant breached by $1.00.",
		ActualValue:      &actual,
		ThresholdValue:   &threshold,
		BreachAmount:     &amount,
		IsActive:         true,
	}
}

func alertConfig(emailEnabled, inAppEnabled bool, users ...string) alertdomain.CovenantAlertConfig {
	return alertdomain.CovenantAlertConfig{
		ID:               100,
		CovenantConfigID: 1,
		CompanyID:        9,
		IsActive:         true,
		EmailEnabled:     emailEnabled,
		InAppEnabled:     inAppEnabled,
		NotifyUsers:      datatypes.NewJSONSlice(users),
	}
}

func TestEnqueue_OneIntentPerRecipientPerChannel(t *testing.T) {
	svc, _ := newTestService(t, &emailStub{})

	intents, err := svc.Enqueue(context.Background(),
		[]alertdomain.CovenantAlert{sampleAlert("a1"), sampleAlert("a2")},
		alertConfig(true, true, "user-1", "user-2"),
	)
	assert.NoError(t, err)
	assert.Len(t, intents, 4)

	channels := map[domain.Channel]int{}
	for _, intent := range intents {
		channels[intent.Channel]++
		assert.Equal(t, domain.IntentPending, intent.Status)
		assert.Equal(t, []string{"a1", "a2"}, []string(intent.AlertIDs))
		assert.Contains(t, intent.Subject, "2 breach(es)")
	}
	assert.Equal(t, 2, channels[domain.ChannelEmail])
	assert.Equal(t, 2, channels[domain.ChannelInApp])
}

func TestEnqueue_NoRecipientsNoIntents(t *testing.T) {
	svc, _ := newTestService(t, &emailStub{})

	intents, err := svc.Enqueue(context.Background(),
		[]alertdomain.CovenantAlert{sampleAlert("a1")},
		alertConfig(true, true),
	)
	assert.NoError(t, err)
	assert.Empty(t, intents)
}

func TestDispatchPending_DeliversAndAudits(t *testing.T) {
	stub := &emailStub{}
	svc, db := newTestService(t, stub)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, []alertdomain.CovenantAlert{sampleAlert("a1")}, alertConfig(true, true, "user-1"))
	assert.NoError(t, err)

	sent, err := svc.DispatchPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, stub.sent, 1)

	messages, err := svc.ListInApp(ctx, "user-1")
	assert.NoError(t, err)
	assert.Len(t, messages, 1)

	var audits int64
	err = db.Model(&auditdomain.AuditEntry{}).
		Where("action = ?", "notification.dispatch").
		Count(&audits).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(2), audits)
}

func TestDispatchPending_FailureMarksForRetry(t *testing.T) {
	stub := &emailStub{failures: 1}
	svc, db := newTestService(t, stub)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, []alertdomain.CovenantAlert{sampleAlert("a1")}, alertConfig(true, false, "user-1"))
	assert.NoError(t, err)

	sent, err := svc.DispatchPending(ctx)
	assert.NoError(t, err)
	assert.Zero(t, sent)

	var intent domain.NotificationIntent
	assert.NoError(t, db.First(&intent).Error)
	assert.Equal(t, domain.IntentFailed, intent.Status)
	assert.Equal(t, 1, intent.Attempts)
	assert.Equal(t, "smtp unavailable", intent.LastError)

	// An immediate retry is held back until the backoff elapses.
	sent, err = svc.DispatchPending(ctx)
	assert.NoError(t, err)
	assert.Zero(t, sent)

	svc.clock.(*clock.FakeClock).Advance(config.DefaultPolicyConfig().Dispatch.RetryBackoff)
	sent, err = svc.DispatchPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, sent)

	assert.NoError(t, db.First(&intent).Error)
	assert.Equal(t, domain.IntentSent, intent.Status)
	assert.NotNil(t, intent.SentAt)
}

func TestDispatchPending_AttemptCapStopsRetries(t *testing.T) {
	stub := &emailStub{failures: 10}
	svc, _ := newTestService(t, stub)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, []alertdomain.CovenantAlert{sampleAlert("a1")}, alertConfig(true, false, "user-1"))
	assert.NoError(t, err)

	policy := config.DefaultPolicyConfig()
	maxAttempts := policy.Dispatch.MaxAttempts
	for i := 0; i < maxAttempts+2; i++ {
		_, err = svc.DispatchPending(ctx)
		assert.NoError(t, err)
		svc.clock.(*clock.FakeClock).Advance(policy.Dispatch.RetryBackoff)
	}

	// Only maxAttempts deliveries were ever attempted.
	assert.Equal(t, 10-maxAttempts, stub.failures)
}
