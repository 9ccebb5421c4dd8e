package engine

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/market"
	"github.com/betpulse/betpulse-engine/internal/rules"
)

// Postgres-backed adapters for the collaborator interfaces. Kept thin so
// tests can swap in fakes without a database.

type PgBetStore struct {
	Pool *pgxpool.Pool
}

func (s PgBetStore) OpenBetsForGame(ctx context.Context, gameID string) ([]market.OpenBet, error) {
	return market.OpenBetsForGame(ctx, s.Pool, gameID)
}

func (s PgBetStore) GameIDsWithOpenBets(ctx context.Context) ([]string, error) {
	return market.GameIDsWithOpenBets(ctx, s.Pool)
}

type PgPreferenceStore struct {
	Pool *pgxpool.Pool
}

func (s PgPreferenceStore) Get(ctx context.Context, userID string) (rules.AlertPreference, error) {
	return rules.GetPreference(ctx, s.Pool, userID)
}

type PgAlertStore struct {
	Pool *pgxpool.Pool
}

func (s PgAlertStore) Insert(ctx context.Context, a alert.Alert) error {
	return alert.Insert(ctx, s.Pool, a)
}

func (s PgAlertStore) ExpireForGame(ctx context.Context, gameID string) (int64, error) {
	return alert.ExpireForGame(ctx, s.Pool, gameID)
}
