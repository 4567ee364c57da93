package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/redis/go-redis/v9"
)

const (
	ttlRoom     = 6 * time.Hour
	keyPrefix   = "relay:"
	keyOpenSet  = keyPrefix + "lobby"
	keyCounters = keyPrefix + "stats"
)

// Counters is the running tally kept alongside the lobby index.
type Counters struct {
	Opened    int64 `json:"opened"`
	Filled    int64 `json:"filled"`
	Finished  int64 `json:"finished"`
	Abandoned int64 `json:"abandoned"`
}

// Store mirrors open rooms into Redis so other processes can list them.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Dial connects to REDIS_URL and verifies the server answers.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *Store) keyRoom(id string) string { return keyPrefix + "room:" + strings.TrimSpace(id) }

// AddLobby stores the room snapshot and lists it as open.
func (s *Store) AddLobby(ctx context.Context, info relay.RoomInfo) error {
	if strings.TrimSpace(info.ID) == "" {
		return nil
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyRoom(info.ID), raw, ttlRoom)
	pipe.ZAdd(ctx, keyOpenSet, redis.Z{Score: float64(info.CreatedAt.Unix()), Member: info.ID})
	pipe.Expire(ctx, keyOpenSet, ttlRoom)
	_, err = pipe.Exec(ctx)
	return err
}

// RemoveLobby drops a room from the open index and deletes its snapshot.
func (s *Store) RemoveLobby(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, keyOpenSet, id)
	pipe.Del(ctx, s.keyRoom(id))
	_, err := pipe.Exec(ctx)
	return err
}

// LoadRoom returns nil when the room is not mirrored.
func (s *Store) LoadRoom(ctx context.Context, id string) (*relay.RoomInfo, error) {
	raw, err := s.rdb.Get(ctx, s.keyRoom(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info relay.RoomInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListLobby returns open rooms, oldest first. Index entries whose snapshot
// expired are pruned.
func (s *Store) ListLobby(ctx context.Context) ([]relay.RoomInfo, error) {
	ids, err := s.rdb.ZRange(ctx, keyOpenSet, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]relay.RoomInfo, 0, len(ids))
	var stale []any
	for _, id := range ids {
		info, err := s.LoadRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		if info == nil || info.Guest != nil {
			stale = append(stale, id)
			continue
		}
		out = append(out, *info)
	}
	if len(stale) > 0 {
		_ = s.rdb.ZRem(ctx, keyOpenSet, stale...).Err()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) incr(ctx context.Context, field string) error {
	return s.rdb.HIncrBy(ctx, keyCounters, field, 1).Err()
}

func (s *Store) Counters(ctx context.Context) (Counters, error) {
	m, err := s.rdb.HGetAll(ctx, keyCounters).Result()
	if err != nil {
		return Counters{}, err
	}
	var c Counters
	for field, dst := range map[string]*int64{
		"opened": &c.Opened, "filled": &c.Filled, "finished": &c.Finished, "abandoned": &c.Abandoned,
	} {
		v, ok := m[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Counters{}, fmt.Errorf("counter %s: %w", field, err)
		}
		*dst = n
	}
	return c, nil
}

// Apply mirrors one room event.
func (s *Store) Apply(ctx context.Context, ev relay.RoomEvent) error {
	switch ev.Kind {
	case relay.RoomOpened:
		if err := s.AddLobby(ctx, ev.Room); err != nil {
			return err
		}
		return s.incr(ctx, "opened")
	case relay.RoomVacated:
		return s.AddLobby(ctx, ev.Room)
	case relay.RoomFilled:
		if err := s.RemoveLobby(ctx, ev.Room.ID); err != nil {
			return err
		}
		return s.incr(ctx, "filled")
	case relay.RoomClosed:
		if err := s.RemoveLobby(ctx, ev.Room.ID); err != nil {
			return err
		}
		if ev.Room.Finished {
			return s.incr(ctx, "finished")
		}
		return s.incr(ctx, "abandoned")
	default:
		return nil
	}
}
