package service

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/config"
	"github.com/smallbiznis/covena/internal/notification/domain"
	"github.com/smallbiznis/covena/internal/notification/providers/email"
	"github.com/smallbiznis/covena/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Policy  *config.PolicyHolder
	Repo    domain.Repository
	Email   email.Provider
	Audit   auditdomain.Recorder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	policy  *config.PolicyHolder
	repo    domain.Repository
	email   email.Provider
	audit   auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		clock:   p.Clock,
		metrics: p.Metrics,
		policy:  p.Policy,
		repo:    p.Repo,
		email:   p.Email,
		audit:   p.Audit,
	}
}

func (s *Service) Enqueue(ctx context.Context, alerts []alertdomain.CovenantAlert, cfg alertdomain.CovenantAlertConfig) ([]domain.NotificationIntent, error) {
	if len(alerts) == 0 || len(cfg.NotifyUsers) == 0 {
		return nil, nil
	}

	subject, body := buildBody(alerts)
	alertIDs := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		alertIDs = append(alertIDs, alert.ID)
	}

	now := s.clock.Now()
	var intents []domain.NotificationIntent
	for _, recipient := range cfg.NotifyUsers {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		for _, channel := range enabledChannels(cfg) {
			intents = append(intents, domain.NotificationIntent{
				ID:        ulid.Make().String(),
				CompanyID: cfg.CompanyID,
				Recipient: recipient,
				Channel:   channel,
				Subject:   subject,
				Body:      body,
				AlertIDs:  datatypes.NewJSONSlice(alertIDs),
				Status:    domain.IntentPending,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	if err := s.repo.InsertIntents(ctx, s.db, intents); err != nil {
		return nil, err
	}

	return intents, nil
}

func (s *Service) DispatchPending(ctx context.Context) (int, error) {
	policy := s.policy.Get()
	retryBefore := s.clock.Now().Add(-policy.Dispatch.RetryBackoff)
	intents, err := s.repo.ListDeliverable(ctx, s.db, policy.Dispatch.MaxAttempts, policy.Evaluation.BatchSize, retryBefore)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, intent := range intents {
		if err := s.deliver(ctx, intent); err != nil {
			s.log.Warn("notification delivery failed",
				zap.String("intent_id", intent.ID),
				zap.String("channel", string(intent.Channel)),
				zap.Int("attempts", intent.Attempts+1),
				zap.Error(err),
			)
			if markErr := s.repo.MarkFailed(ctx, s.db, intent.ID, err.Error(), s.clock.Now()); markErr != nil {
				return sent, markErr
			}
			s.recordOutcome(ctx, intent, "failed", err.Error())
			continue
		}

		if err := s.repo.MarkSent(ctx, s.db, intent.ID, s.clock.Now()); err != nil {
			return sent, err
		}
		s.recordOutcome(ctx, intent, "sent", "")
		sent++
	}

	return sent, nil
}

func (s *Service) ListInApp(ctx context.Context, userID string) ([]domain.InAppMessage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidRecipient
	}
	return s.repo.ListInAppByUser(ctx, s.db, userID)
}

func (s *Service) deliver(ctx context.Context, intent domain.NotificationIntent) error {
	switch intent.Channel {
	case domain.ChannelEmail:
		return s.email.Send(ctx, []string{intent.Recipient}, intent.Subject, intent.Body)
	case domain.ChannelInApp:
		message := domain.InAppMessage{
			ID:        ulid.Make().String(),
			UserID:    intent.Recipient,
			CompanyID: intent.CompanyID,
			Title:     intent.Subject,
			Body:      intent.Body,
			CreatedAt: s.clock.Now(),
		}
		return s.repo.InsertInApp(ctx, s.db, &message)
	default:
		return domain.ErrInvalidRecipient
	}
}

func (s *Service) recordOutcome(ctx context.Context, intent domain.NotificationIntent, outcome, reason string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(ctx, string(intent.Channel), outcome)
	}
	metadata := datatypes.JSONMap{
		"channel":   string(intent.Channel),
		"recipient": intent.Recipient,
		"outcome":   outcome,
		"alert_ids": []string(intent.AlertIDs),
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	s.audit.Record(ctx, auditdomain.RecordRequest{
		CompanyID:  intent.CompanyID,
		Action:     "notification.dispatch",
		EntityType: "notification_intent",
		EntityID:   intent.ID,
		Metadata:   metadata,
	})
}

func enabledChannels(cfg alertdomain.CovenantAlertConfig) []domain.Channel {
	var channels []domain.Channel
	if cfg.EmailEnabled {
		channels = append(channels, domain.ChannelEmail)
	}
	if cfg.InAppEnabled {
		channels = append(channels, domain.ChannelInApp)
	}
	return channels
}
