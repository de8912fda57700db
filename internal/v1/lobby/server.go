// Package lobby implements the blazer.v1.Lobby service: identity issuance
// via Ping and the room create/join coordination behind the RoomService
// stream.
package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/session"
	"github.com/blazerhq/blazer/internal/v1/store"
	"github.com/blazerhq/blazer/internal/v1/types"
)

// gamePrompt seeds every new game until prompt selection exists.
const gamePrompt = "This is a sample prompt for the game"

// Config carries the room capacities.
type Config struct {
	// RoomCapacity is the capacity of private rooms created via CreateRoom.
	RoomCapacity int
	// CommonRoomCapacity is the capacity of the always-on common room.
	CommonRoomCapacity int
}

// Server implements pb.LobbyServer.
type Server struct {
	store     *store.Store
	registry  *session.Registry
	roomLocks *store.KeyedMutex
	userLocks *store.KeyedMutex
	cfg       Config
}

// NewServer builds the lobby service and bootstraps the common room so it
// exists from startup onward.
func NewServer(ctx context.Context, st *store.Store, registry *session.Registry, cfg Config) (*Server, error) {
	s := &Server{
		store:     st,
		registry:  registry,
		roomLocks: store.NewKeyedMutex(),
		userLocks: store.NewKeyedMutex(),
		cfg:       cfg,
	}

	_, err := st.FindRoom(ctx, types.CommonRoomID)
	switch {
	case err == nil:
		logging.Info(ctx, "Common room already exists")
	case errors.Is(err, store.ErrNotFound):
		if _, err := st.UpsertRoom(ctx, types.NewRoom(types.CommonRoomID, cfg.CommonRoomCapacity)); err != nil {
			return nil, err
		}
		logging.Info(ctx, "Created common room", zap.Int("capacity", cfg.CommonRoomCapacity))
	default:
		return nil, err
	}

	return s, nil
}

// authenticate resolves a client id to its stored user record. Possession of
// a valid id is the only credential the lobby requires.
func (s *Server) authenticate(ctx context.Context, userID string) (types.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return types.User{}, asNotFound(ctx, err, ErrUserNotFound(userID))
	}
	return user, nil
}

// fail logs a request failure at the RPC boundary before it is surfaced as a
// transport status.
func (s *Server) fail(ctx context.Context, err error) error {
	logging.Error(ctx, "Request failed", zap.Error(err))
	return err
}
