// Package guard implements the in-process anti-loop filter: it rejects
// events authored by our own connected accounts, events we posted
// ourselves as replies, and recently seen event ids. It is advisory
// only; the durable duplicate filter is the comment lock in store.
package guard

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

const (
	// processedTTL bounds the local seen-event cache.
	processedTTL = time.Hour

	// redisDedupTTL mirrors seen ids in Redis so restarts keep some
	// short-term duplicate memory.
	redisDedupTTL = time.Hour

	redisKeyPrefix      = "autoreply:seen:"
	redisBotReplyPrefix = "autoreply:botreply:"
)

// Guard holds the process-wide anti-loop state. All methods are safe for
// concurrent use from multiple in-flight webhook requests.
type Guard struct {
	mu         sync.RWMutex
	ownIDs     map[string]struct{}
	botReplies map[string]struct{}
	processed  map[string]time.Time

	redis  *goredis.Client
	logger logging.Logger
}

// New creates a guard. redisClient may be nil; the guard then runs on
// process-local state only.
func New(logger logging.Logger, redisClient *goredis.Client) *Guard {
	return &Guard{
		ownIDs:     make(map[string]struct{}),
		botReplies: make(map[string]struct{}),
		processed:  make(map[string]time.Time),
		redis:      redisClient,
		logger:     logger,
	}
}

// AddOwnID registers an identifier (page id or profile id) as one of our
// own connected accounts.
func (g *Guard) AddOwnID(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	g.ownIDs[id] = struct{}{}
	g.mu.Unlock()
}

// IsOwnAccount reports whether the actor id belongs to a connected account.
func (g *Guard) IsOwnAccount(id string) bool {
	g.mu.RLock()
	_, ok := g.ownIDs[id]
	g.mu.RUnlock()
	return ok
}

// OwnIDCount returns the number of registered own ids. Used by diagnostics.
func (g *Guard) OwnIDCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ownIDs)
}

// MarkBotReply records a comment id we just posted, so its webhook echo
// is rejected when Meta delivers it back to us. Mirrored in Redis so
// replicas share the set; mirror failures degrade silently.
func (g *Guard) MarkBotReply(ctx context.Context, id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	g.botReplies[id] = struct{}{}
	g.mu.Unlock()

	if g.redis != nil {
		if err := g.redis.SetNX(ctx, redisBotReplyPrefix+id, 1, redisDedupTTL).Err(); err != nil {
			g.logger.WithError(err).WithField("comment_id", id).Debug("Redis bot-reply mirror write failed")
		}
	}
}

// IsBotReply reports whether the comment id is one of our own replies.
func (g *Guard) IsBotReply(ctx context.Context, id string) bool {
	g.mu.RLock()
	_, ok := g.botReplies[id]
	g.mu.RUnlock()
	if ok {
		return true
	}

	if g.redis != nil {
		n, err := g.redis.Exists(ctx, redisBotReplyPrefix+id).Result()
		if err != nil {
			g.logger.WithError(err).WithField("comment_id", id).Debug("Redis bot-reply mirror read failed")
			return false
		}
		return n > 0
	}
	return false
}

// MarkProcessed records an event id as seen and evicts expired entries.
// When Redis is configured the id is mirrored there with a TTL; mirror
// failures degrade silently to local-only state.
func (g *Guard) MarkProcessed(ctx context.Context, id string) {
	now := time.Now()

	g.mu.Lock()
	g.processed[id] = now
	for k, seen := range g.processed {
		if now.Sub(seen) > processedTTL {
			delete(g.processed, k)
		}
	}
	g.mu.Unlock()

	if g.redis != nil {
		if err := g.redis.SetNX(ctx, redisKeyPrefix+id, 1, redisDedupTTL).Err(); err != nil {
			g.logger.WithError(err).WithField("event_id", id).Debug("Redis dedup mirror write failed")
		}
	}
}

// IsDuplicate reports whether the event id was already seen, consulting
// the local cache first and the Redis mirror second.
func (g *Guard) IsDuplicate(ctx context.Context, id string) bool {
	g.mu.RLock()
	seen, ok := g.processed[id]
	g.mu.RUnlock()
	if ok && time.Since(seen) <= processedTTL {
		return true
	}

	if g.redis != nil {
		n, err := g.redis.Exists(ctx, redisKeyPrefix+id).Result()
		if err != nil {
			g.logger.WithError(err).WithField("event_id", id).Debug("Redis dedup mirror read failed")
			return false
		}
		return n > 0
	}
	return false
}
