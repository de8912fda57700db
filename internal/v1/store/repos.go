package store

import (
	"context"

	"github.com/blazerhq/blazer/internal/v1/types"
)

// Key prefixes per entity. Room lookup by id is the only access pattern;
// there are no secondary indexes.
const (
	userKeyPrefix = "user:"
	roomKeyPrefix = "room:"
	gameKeyPrefix = "game:"
)

func userKey(userID string) string { return userKeyPrefix + userID }
func roomKey(roomID string) string { return roomKeyPrefix + roomID }
func gameKey(gameID string) string { return gameKeyPrefix + gameID }

// Store provides typed access to the persisted domain entities.
type Store struct {
	kv *Client
}

func New(kv *Client) *Store {
	return &Store{kv: kv}
}

// Ping reports store connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// --- Users ---

func (s *Store) FindUser(ctx context.Context, userID string) (types.User, error) {
	return Get[types.User](ctx, s.kv, userKey(userID))
}

// UpsertUser writes the user record unconditionally.
func (s *Store) UpsertUser(ctx context.Context, u types.User) (types.User, error) {
	return Put(ctx, s.kv, userKey(u.UserID), u)
}

// CreateUser inserts a new user record, failing with ErrDuplicate if the id
// is already taken.
func (s *Store) CreateUser(ctx context.Context, u types.User) (types.User, error) {
	return PutIfAbsent(ctx, s.kv, userKey(u.UserID), u)
}

// GetUsers fetches the full records for the given ids, preserving order.
func (s *Store) GetUsers(ctx context.Context, userIDs []string) ([]types.User, error) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, userKey(id))
	}
	return GetMany[types.User](ctx, s.kv, keys)
}

// --- Rooms ---

func (s *Store) FindRoom(ctx context.Context, roomID string) (types.Room, error) {
	return Get[types.Room](ctx, s.kv, roomKey(roomID))
}

func (s *Store) UpsertRoom(ctx context.Context, r types.Room) (types.Room, error) {
	return Put(ctx, s.kv, roomKey(r.RoomID), r)
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	return Delete(ctx, s.kv, roomKey(roomID))
}

// --- Games ---

func (s *Store) InsertGame(ctx context.Context, g types.Game) (types.Game, error) {
	return Put(ctx, s.kv, gameKey(g.GameID), g)
}

func (s *Store) FindGame(ctx context.Context, gameID string) (types.Game, error) {
	return Get[types.Game](ctx, s.kv, gameKey(gameID))
}
