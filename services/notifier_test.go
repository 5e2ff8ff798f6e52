package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoreg/models"
	"motoreg/utils"
)

type fakeSender struct {
	sent []utils.EmailData
}

func (f *fakeSender) SendEmail(data utils.EmailData) error {
	f.sent = append(f.sent, data)
	return nil
}

func TestMailNotifier(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	n := NewMailNotifier(sender)

	team := &models.Team{Name: "Los Rápidos", RepresentativeEmail: "rep@riders.es", Status: models.StatusPending}
	require.NoError(t, n.StatusChanged(ctx, team))
	assert.Empty(t, sender.sent)

	team.Status = models.StatusConfirmed
	require.NoError(t, n.StatusChanged(ctx, team))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"rep@riders.es"}, sender.sent[0].To)
	assert.Equal(t, "team_status", sender.sent[0].Template)

	body, err := utils.RenderEmail(sender.sent[0].Template, sender.sent[0].Subject, sender.sent[0].Data)
	require.NoError(t, err)
	assert.Contains(t, body, "Los Rápidos")
	assert.Contains(t, body, "confirmed")

	team.RepresentativeEmail = ""
	assert.Error(t, n.StatusChanged(ctx, team))
}
