package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/betpulse/betpulse-engine/internal/game"
)

// HTTPGameFeed polls a scoreboard API. Auth is a bearer key in the
// Authorization header; rate limiting is a token bucket shared across all
// tracked games.
type HTTPGameFeed struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewHTTPGameFeed creates a rate-limited scoreboard client.
func NewHTTPGameFeed(baseURL, apiKey string, requestsPerMinute int, logger *slog.Logger) *HTTPGameFeed {
	if logger == nil {
		logger = slog.Default()
	}
	rps := float64(requestsPerMinute) / 60.0
	return &HTTPGameFeed{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// gameJSON is the feed's wire shape for one game.
type gameJSON struct {
	GameID      string   `json:"gameId"`
	League      string   `json:"league"`
	HomeTeam    string   `json:"homeTeam"`
	AwayTeam    string   `json:"awayTeam"`
	HomeScore   int      `json:"homeScore"`
	AwayScore   int      `json:"awayScore"`
	Period      int      `json:"period"`
	Clock       string   `json:"gameClock"`
	Status      string   `json:"gameStatus"`
	StartTime   string   `json:"startTimeUTC"`
	HomeWinProb *float64 `json:"homeWinProb"`
}

func (g gameJSON) snapshot(observedAt time.Time) game.Snapshot {
	start, err := time.Parse(time.RFC3339, g.StartTime)
	if err != nil {
		start = time.Time{}
	}
	return game.Snapshot{
		GameID:      g.GameID,
		League:      g.League,
		HomeTeam:    g.HomeTeam,
		AwayTeam:    g.AwayTeam,
		HomeScore:   g.HomeScore,
		AwayScore:   g.AwayScore,
		Period:      g.Period,
		Clock:       g.Clock,
		Status:      g.Status,
		StartTime:   start,
		HomeWinProb: g.HomeWinProb,
		ObservedAt:  observedAt,
	}
}

// Poll fetches one game's current snapshot.
func (f *HTTPGameFeed) Poll(ctx context.Context, gameID string) (game.Snapshot, error) {
	body, status, err := f.get(ctx, "/games/"+gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	if status == http.StatusNotFound {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if status != http.StatusOK {
		return game.Snapshot{}, fmt.Errorf("game feed returned %d: %s", status, truncate(body, 200))
	}

	var g gameJSON
	if err := json.Unmarshal(body, &g); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode game: %w", err)
	}
	return g.snapshot(time.Now()), nil
}

// Scoreboard fetches every game on today's board.
func (f *HTTPGameFeed) Scoreboard(ctx context.Context) ([]game.Snapshot, error) {
	body, status, err := f.get(ctx, "/scoreboard")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("scoreboard returned %d: %s", status, truncate(body, 200))
	}

	var board struct {
		Games []gameJSON `json:"games"`
	}
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}

	now := time.Now()
	snaps := make([]game.Snapshot, 0, len(board.Games))
	for _, g := range board.Games {
		snaps = append(snaps, g.snapshot(now))
	}
	return snaps, nil
}

// get performs a rate-limited GET and returns the body and status code.
func (f *HTTPGameFeed) get(ctx context.Context, path string) ([]byte, int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
