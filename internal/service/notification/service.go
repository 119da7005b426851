// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/pool"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sender delivers one rendered message. Satisfied by *email.EmailSender.
type Sender interface {
	Send(to, subject, bodyHTML string) error
}

// RecipientDirectory resolves the email addresses behind business ids.
type RecipientDirectory interface {
	BusinessEmail(ctx context.Context, businessID int64) (string, error)
	InvestorEmails(ctx context.Context) ([]string, error)
}

// NotificationService delivers pool lifecycle emails. Delivery is fire and
// forget: failures are logged and never bubble into the calling transaction.
type NotificationService struct {
	sender    Sender
	directory RecipientDirectory
	logger    *zap.Logger
}

func NewNotificationService(sender Sender, directory RecipientDirectory, logger *zap.Logger) *NotificationService {
	return &NotificationService{sender: sender, directory: directory, logger: logger}
}

// ContributionDecided tells the contributing investor the outcome of their
// pool contribution.
func (s *NotificationService) ContributionDecided(ctx context.Context, c *pool.Contribution, p *pool.Pool) {
	to, err := s.directory.BusinessEmail(ctx, c.ParticipantID)
	if err != nil {
		s.logger.Warn("no email for contribution participant",
			zap.Int64("participant_id", c.ParticipantID), zap.Error(err))
		return
	}

	var subject, body string
	switch c.Status {
	case pool.ContributionApproved:
		subject = "Your pool contribution was approved"
		body = fmt.Sprintf("<p>Your contribution to <b>%s</b> has been approved and your items are now part of the pool.</p>", p.Name)
	case pool.ContributionAdminApproved:
		subject = "Your pool contribution passed review"
		body = fmt.Sprintf("<p>Your contribution to <b>%s</b> passed admin review and awaits final confirmation.</p>", p.Name)
	case pool.ContributionRejected:
		subject = "Your pool contribution was rejected"
		body = fmt.Sprintf("<p>Your contribution to <b>%s</b> was not accepted. Any reserved items have been released back to you.</p>", p.Name)
	default:
		return
	}

	go s.deliver(to, subject, body)
}

// PoolOpportunity invites investors into a pool that still has capacity.
func (s *NotificationService) PoolOpportunity(ctx context.Context, p *pool.Pool, remainingWeight decimal.Decimal) {
	emails, err := s.directory.InvestorEmails(ctx)
	if err != nil {
		s.logger.Warn("failed to list investor emails", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Investment opportunity: %s", p.Name)
	body := fmt.Sprintf(
		"<p>The pool <b>%s</b> is open with <b>%s</b> still needed to reach its target. Log in to contribute.</p>",
		p.Name, remainingWeight.String(),
	)
	for _, to := range emails {
		go s.deliver(to, subject, body)
	}
}

func (s *NotificationService) deliver(to, subject, body string) {
	if err := s.sender.Send(to, subject, body); err != nil {
		s.logger.Warn("failed to send notification email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
