// Package cache publishes recovery results to Redis for dashboards that
// should not re-run recovery themselves.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
)

// TTL constants
const (
	LeaderboardTTL = 24 * time.Hour
	SummaryTTL     = 24 * time.Hour
	MatchTTL       = 7 * 24 * time.Hour
)

// RecoveryStream receives one entry per completed recovery.
const RecoveryStream = "pvpobs.recoveries"

// RedisWriter handles writing recovery results to Redis
type RedisWriter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisWriter creates a new Redis writer. prefix namespaces every key.
func NewRedisWriter(client redis.UniversalClient, prefix string) *RedisWriter {
	if prefix == "" {
		prefix = "pvpobs"
	}
	return &RedisWriter{
		client: client,
		prefix: prefix,
	}
}

// LeaderboardKey is the sorted set of player keys scored by tier score.
func (w *RedisWriter) LeaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", w.prefix)
}

// PlayerKey holds one player's aggregated statistics.
func (w *RedisWriter) PlayerKey(playerKey string) string {
	return fmt.Sprintf("%s:player:%s", w.prefix, playerKey)
}

// SummaryKey holds the distribution summary of the last recovery.
func (w *RedisWriter) SummaryKey() string {
	return fmt.Sprintf("%s:summary", w.prefix)
}

// MatchKey holds one match, keyed by its start time.
func (w *RedisWriter) MatchKey(m match.MatchRecord) string {
	return fmt.Sprintf("%s:match:%d", w.prefix, m.StartTime.UnixMilli())
}

// RecentMatchesKey lists match keys, newest first.
func (w *RedisWriter) RecentMatchesKey() string {
	return fmt.Sprintf("%s:matches:recent", w.prefix)
}

// WriteLeaderboard replaces the leaderboard and the per-player entries.
func (w *RedisWriter) WriteLeaderboard(ctx context.Context, players []*stats.PlayerStats) error {
	pipe := w.client.TxPipeline()
	pipe.Del(ctx, w.LeaderboardKey())

	members := make([]redis.Z, 0, len(players))
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling player %s: %w", p.Key, err)
		}
		pipe.Set(ctx, w.PlayerKey(p.Key), data, LeaderboardTTL)
		members = append(members, redis.Z{Score: p.TierScore, Member: p.Key})
	}
	if len(members) > 0 {
		pipe.ZAdd(ctx, w.LeaderboardKey(), members...)
	}
	pipe.Expire(ctx, w.LeaderboardKey(), LeaderboardTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// WriteSummary stores the distribution summary.
func (w *RedisWriter) WriteSummary(ctx context.Context, summary stats.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return w.client.Set(ctx, w.SummaryKey(), data, SummaryTTL).Err()
}

// WriteMatches stores the matches and replaces the recent-matches list.
func (w *RedisWriter) WriteMatches(ctx context.Context, matches []match.MatchRecord) error {
	recent := stats.Recent(matches, stats.RecentMatches)

	pipe := w.client.Pipeline()
	pipe.Del(ctx, w.RecentMatchesKey())
	keys := make([]interface{}, 0, len(recent))
	for _, m := range recent {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling match: %w", err)
		}
		key := w.MatchKey(m)
		pipe.Set(ctx, key, data, MatchTTL)
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		pipe.RPush(ctx, w.RecentMatchesKey(), keys...)
	}
	pipe.Expire(ctx, w.RecentMatchesKey(), MatchTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// PublishRecovery announces a finished recovery on RecoveryStream.
func (w *RedisWriter) PublishRecovery(ctx context.Context, source string, matches, players int) error {
	return w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: RecoveryStream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"source":  source,
			"matches": matches,
			"players": players,
			"at":      time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
}

// ReadLeaderboard returns up to limit players, best tier score first.
func (w *RedisWriter) ReadLeaderboard(ctx context.Context, limit int64) ([]*stats.PlayerStats, error) {
	keys, err := w.client.ZRevRange(ctx, w.LeaderboardKey(), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*stats.PlayerStats, 0, len(keys))
	for _, k := range keys {
		data, err := w.client.Get(ctx, w.PlayerKey(k)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var p stats.PlayerStats
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshaling player %s: %w", k, err)
		}
		players = append(players, &p)
	}
	return players, nil
}

// ReadSummary retrieves the distribution summary.
func (w *RedisWriter) ReadSummary(ctx context.Context) (*stats.Summary, error) {
	data, err := w.client.Get(ctx, w.SummaryKey()).Bytes()
	if err != nil {
		return nil, err
	}
	var s stats.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling summary: %w", err)
	}
	return &s, nil
}

// Ping checks the connection.
func (w *RedisWriter) Ping(ctx context.Context) error {
	return w.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (w *RedisWriter) Close() error {
	return w.client.Close()
}
