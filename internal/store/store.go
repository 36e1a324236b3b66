// Package store persists plantations, land ownership records and the
// activity log in PostGIS.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// LandFilter narrows a land ownership listing.
type LandFilter struct {
	// Contains keeps parcels whose boundary covers the point.
	Contains      *combined.Near
	OwnershipType string
	LandUseType   string
	Limit         int
	Offset        int
}

// Store is the persistence interface used by the HTTP layer.
type Store interface {
	combined.Source
	combined.Aggregates

	CreateIndividual(ctx context.Context, in plantation.NewIndividual, userID string) (*plantation.IndividualPlantation, error)
	GetIndividual(ctx context.Context, id string) (*plantation.IndividualPlantation, error)
	UpdateIndividual(ctx context.Context, id string, patch plantation.IndividualPatch, userID string) (*plantation.IndividualPlantation, error)
	DeleteIndividual(ctx context.Context, id string) error
	VerifyIndividual(ctx context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.IndividualPlantation, error)

	CreateBlock(ctx context.Context, in plantation.NewBlock, userID string) (*plantation.BlockPlantation, error)
	GetBlock(ctx context.Context, id string) (*plantation.BlockPlantation, error)
	UpdateBlock(ctx context.Context, id string, patch plantation.BlockPatch, userID string) (*plantation.BlockPlantation, error)
	DeleteBlock(ctx context.Context, id string) error
	VerifyBlock(ctx context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.BlockPlantation, error)

	CreateLand(ctx context.Context, in plantation.LandOwnershipInput, userID string) (*plantation.LandOwnership, error)
	GetLand(ctx context.Context, id string) (*plantation.LandOwnership, error)
	ListLand(ctx context.Context, f LandFilter) ([]plantation.LandOwnership, int, error)
	UpdateLand(ctx context.Context, id string, patch plantation.LandOwnershipPatch) (*plantation.LandOwnership, error)
	DeleteLand(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// dbError maps constraint violations to domain errors and wraps everything
// else with msg.
func dbError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return plantation.Conflict("a record with the same unique value already exists")
		case "23503":
			return plantation.Conflict("the record is referenced by or references a missing record")
		case "23514":
			return plantation.Validation("value violates constraint "+pgErr.ConstraintName, nil)
		}
	}
	return eris.Wrap(err, msg)
}

// notFound converts pgx.ErrNoRows into a domain not-found error.
func notFound(err error, what, id, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return plantation.NotFound(what, id)
	}
	return dbError(err, msg)
}
