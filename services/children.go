package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"motoreg/models"
	"motoreg/store"
)

var (
	pilotOrder = &store.Order{Field: "pilot_number"}
	staffOrder = &store.Order{Field: "created_at"}
)

// loadChildren fetches a team's pilots and staff concurrently.
func loadChildren(ctx context.Context, st store.RecordStore, team models.Team) (models.TeamWithRelations, error) {
	var (
		pilots []models.Pilot
		staff  []models.TeamStaff
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return st.List(gctx, store.CollectionPilots, store.Filter{store.ParentField: team.ID}, pilotOrder, &pilots)
	})
	g.Go(func() error {
		return st.List(gctx, store.CollectionStaff, store.Filter{store.ParentField: team.ID}, staffOrder, &staff)
	})
	if err := g.Wait(); err != nil {
		return models.TeamWithRelations{}, err
	}
	return models.NewTeamWithRelations(team, pilots, staff), nil
}
