package services

import (
	"context"
	"errors"

	"motoreg/models"
	"motoreg/utils"
)

// Notifier is told about admin status decisions on a team.
type Notifier interface {
	StatusChanged(ctx context.Context, team *models.Team) error
}

type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, *models.Team) error { return nil }

type EmailSender interface {
	SendEmail(data utils.EmailData) error
}

// MailNotifier mails the representative when a team is confirmed or cancelled.
type MailNotifier struct {
	sender EmailSender
}

func NewMailNotifier(sender EmailSender) *MailNotifier {
	return &MailNotifier{sender: sender}
}

var statusSubjects = map[models.TeamStatus]string{
	models.StatusConfirmed: "Inscripción confirmada / Registration confirmed",
	models.StatusCancelled: "Inscripción cancelada / Registration cancelled",
}

func (n *MailNotifier) StatusChanged(ctx context.Context, team *models.Team) error {
	subject, ok := statusSubjects[team.Status]
	if !ok {
		return nil
	}
	if team.RepresentativeEmail == "" {
		return errors.New("team has no representative email")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return n.sender.SendEmail(utils.EmailData{
		Subject:  subject,
		To:       []string{team.RepresentativeEmail},
		Template: "team_status",
		Data: map[string]interface{}{
			"TeamName":           team.Name,
			"RepresentativeName": team.RepresentativeName,
			"Status":             string(team.Status),
		},
	})
}
