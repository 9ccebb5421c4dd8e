package market

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenBetsForGame returns all unsettled bets on a game, across users.
func OpenBetsForGame(ctx context.Context, pool *pgxpool.Pool, gameID string) ([]OpenBet, error) {
	rows, err := pool.Query(ctx, "open_bets_for_game", gameID)
	if err != nil {
		return nil, fmt.Errorf("open bets for game: %w", err)
	}
	defer rows.Close()

	var bets []OpenBet
	for rows.Next() {
		var b OpenBet
		if err := rows.Scan(&b.BetID, &b.UserID, &b.GameID, &b.BetType, &b.Side,
			&b.Amount, &b.Odds, &b.Line, &b.MarketTicker, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan open bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// GameIDsWithOpenBets returns the distinct games any user holds an open bet
// on. The tracker polls this to decide which games to watch.
func GameIDsWithOpenBets(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, "games_with_open_bets")
	if err != nil {
		return nil, fmt.Errorf("games with open bets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
