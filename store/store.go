// Package store hides the physical layout of team records behind one
// collection-oriented interface. The relational adapter keeps children in
// their own tables keyed by team_id; the document adapter keeps them as
// subcollections of the parent team.
package store

import (
	"context"
	"errors"
)

// Collection names. They double as table names for the relational adapter.
const (
	CollectionTeams    = "teams"
	CollectionPilots   = "pilots"
	CollectionStaff    = "team_staff"
	CollectionSettings = "registration_settings"
)

// ParentField is the field linking child records to their team.
const ParentField = "team_id"

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by Insert when the id is taken or the
	// representative already owns a team.
	ErrConflict = errors.New("record conflicts with an existing one")
)

// OwnerField is unique across teams.
const OwnerField = "representative_user_id"

// Filter matches records whose fields equal every given value.
type Filter map[string]interface{}

// Order sorts list results by a single field.
type Order struct {
	Field string
	Desc  bool
}

// Record is anything the store can insert. IDs are assigned by the caller.
type Record interface {
	RecordID() string
}

// RecordStore is the minimal contract the registration core needs.
// dest arguments are pointers to a model (Get) or to a slice of models (List).
type RecordStore interface {
	Get(ctx context.Context, collection string, filter Filter, dest interface{}) error
	List(ctx context.Context, collection string, filter Filter, order *Order, dest interface{}) error
	Insert(ctx context.Context, collection string, record Record) error
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	Close() error
}

// isChild reports whether records of collection live under a team.
func isChild(collection string) bool {
	return collection == CollectionPilots || collection == CollectionStaff
}
