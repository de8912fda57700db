package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/metrics"
	"github.com/blazerhq/blazer/internal/v1/session"
	"github.com/blazerhq/blazer/internal/v1/store"
	"github.com/blazerhq/blazer/internal/v1/types"
)

// cleanupTimeout bounds the store work done after a stream terminates.
const cleanupTimeout = 5 * time.Second

// RoomService performs at most one mutation (create or join) and then keeps
// the stream open, pumping membership events from the session sink to the
// client until the game starts or the client disconnects.
//
// The session is registered in the registry before the mutation runs so a
// self-addressed event enqueued during the mutation cannot be lost.
func (s *Server) RoomService(req *pb.RoomServiceRequest, stream pb.Lobby_RoomServiceServer) error {
	ctx := logging.WithUser(stream.Context(), req.GetClientId())
	logging.Info(ctx, "RoomService request",
		zap.Uint32("requestType", req.RequestType), zap.String("roomId", req.GetRoomId()))

	if req.RequestType != pb.RequestTypeCreateRoom && req.RequestType != pb.RequestTypeJoinRoom {
		return s.fail(ctx, ErrBadRequest("received invalid request type"))
	}

	user, err := s.authenticate(ctx, req.GetClientId())
	if err != nil {
		return s.fail(ctx, err)
	}

	sink := make(session.Sink, session.SinkCapacity)
	s.registry.Insert(user.UserID, sink)

	// membership is the room this session places the user in; empty for
	// CreateRoom, which establishes no membership.
	membership := ""
	switch req.RequestType {
	case pb.RequestTypeCreateRoom:
		err = s.createRoom(ctx, user, req.RoomId)
	case pb.RequestTypeJoinRoom:
		membership = types.CommonRoomID
		if req.RoomId != nil && *req.RoomId != "" {
			membership = *req.RoomId
		}
		err = s.joinRoom(ctx, user, membership)
	}
	if err != nil {
		s.registry.RemoveSink(user.UserID, sink)
		return s.fail(ctx, err)
	}

	return s.pump(ctx, user.UserID, membership, sink, stream)
}

// pump drains the session sink onto the client stream. It terminates on the
// first of: a stream-closing event delivered, a failed or canceled stream, or
// the sink being closed by a replacing session. Every exit path runs cleanup.
func (s *Server) pump(ctx context.Context, userID, membership string, sink session.Sink, stream pb.Lobby_RoomServiceServer) error {
	for {
		select {
		case <-ctx.Done():
			logging.Info(ctx, "Stream context done", zap.Error(ctx.Err()))
			s.cleanup(userID, membership, sink)
			return nil
		case ev, ok := <-sink:
			if !ok {
				// A newer stream for this user replaced us. Release the
				// membership this session established; RemoveSink's identity
				// guard keeps the successor's registry entry intact.
				logging.Info(ctx, "Session replaced by newer stream")
				s.cleanup(userID, membership, sink)
				return nil
			}
			if err := stream.Send(ev.Response()); err != nil {
				logging.Info(ctx, "User stream closed", zap.Error(err))
				s.cleanup(userID, membership, sink)
				return nil
			}
			if ev.ClosesStream() {
				logging.Info(ctx, "Closing stream after game start",
					zap.String("roomId", ev.RoomID))
				s.cleanup(userID, membership, sink)
				return nil
			}
		}
	}
}

// cleanup releases the membership this session established, if any, and
// deregisters the session. It runs on a fresh context; the stream's is
// already dead. The release is scoped to the session's own room so a
// successor session's membership elsewhere is untouched.
func (s *Server) cleanup(userID, roomID string, sink session.Sink) {
	defer s.registry.RemoveSink(userID, sink)
	if roomID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	ctx = logging.WithUser(ctx, userID)

	s.leaveRoom(ctx, userID, roomID)
}

// leaveRoom removes the user from roomID and clears the assignment on their
// record if it still points there.
func (s *Server) leaveRoom(ctx context.Context, userID, roomID string) {
	ctx = logging.WithRoom(ctx, roomID)

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	room, err := s.store.FindRoom(ctx, roomID)
	switch {
	case err == nil:
		if room.HasUser(userID) {
			room.RemoveUser(userID)
			if _, err := s.store.UpsertRoom(ctx, room); err != nil {
				logging.Error(ctx, "Cleanup: failed to persist room", zap.Error(err))
				return
			}
			logging.Info(ctx, "Removed user from room")
		}
	case errors.Is(err, store.ErrNotFound):
		// Room already gone (filled and deleted); nothing to remove.
	default:
		logging.Error(ctx, "Cleanup: failed to fetch room", zap.Error(err))
		return
	}

	unlockUser := s.userLocks.Lock(userID)
	defer unlockUser()

	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		logging.Error(ctx, "Cleanup: failed to fetch user", zap.Error(err))
		return
	}
	if user.RoomID != nil && *user.RoomID == roomID {
		user.ClearRoom()
		if _, err := s.store.UpsertUser(ctx, user); err != nil {
			logging.Error(ctx, "Cleanup: failed to persist user", zap.Error(err))
		}
	}
}

// createRoom creates a private room and tells the caller about it. The
// creator is NOT added to the member list; membership is established by a
// subsequent JoinRoom on the new id.
func (s *Server) createRoom(ctx context.Context, user types.User, requestedID *string) error {
	roomID := ""
	if requestedID != nil && *requestedID != "" {
		roomID = *requestedID
	} else {
		roomID = newRoomID()
	}
	ctx = logging.WithRoom(ctx, roomID)

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	_, err := s.store.FindRoom(ctx, roomID)
	switch {
	case err == nil:
		// The client must retry with a different room id.
		return ErrRoomAlreadyExists(roomID)
	case errors.Is(err, store.ErrNotFound):
		if _, err := s.store.UpsertRoom(ctx, types.NewRoom(roomID, s.cfg.RoomCapacity)); err != nil {
			return asInternal(ctx, err)
		}
	default:
		return asInternal(ctx, err)
	}

	metrics.RoomsCreated.Inc()
	logging.Info(ctx, "Created room", zap.Int("capacity", s.cfg.RoomCapacity))

	s.registry.Send(ctx, user.UserID, session.Event{
		Type:   session.EventRoomCreated,
		RoomID: roomID,
		Users:  []types.User{user},
	})
	return nil
}

// joinRoom adds the caller to the room, fans the membership change out to
// every member, and starts a game when the room fills. Operations on one room
// are serialized by a keyed lock so concurrent joins cannot overfill it or
// lose an update.
func (s *Server) joinRoom(ctx context.Context, user types.User, roomID string) error {
	ctx = logging.WithRoom(ctx, roomID)

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		return asNotFound(ctx, err, ErrRoomNotFound(roomID))
	}

	if room.HasUser(user.UserID) {
		return ErrBadRequest("user trying to join the same room")
	}
	// Can happen when there is a slight delay in starting the game while all
	// users are already in the room.
	if room.IsFull() {
		return ErrBadRequest("maximum capacity has been reached for the room")
	}

	size := room.AddUser(user.UserID)

	// The user lock keeps this write atomic against a replaced session's
	// cleanup clearing the record for its own room.
	unlockUser := s.userLocks.Lock(user.UserID)
	user.AssignRoom(roomID)
	_, err = s.store.UpsertUser(ctx, user)
	unlockUser()
	if err != nil {
		return asInternal(ctx, err)
	}

	members, err := s.store.GetUsers(ctx, room.Users)
	if err != nil {
		return asInternal(ctx, err)
	}
	logging.Info(ctx, "User joined room", zap.Int("size", size), zap.Int("capacity", room.Capacity))

	if size == room.Capacity {
		return s.startGame(ctx, room, members)
	}

	if _, err := s.store.UpsertRoom(ctx, room); err != nil {
		return asInternal(ctx, err)
	}

	// Tell everyone already in the room about the newcomer, then give the
	// newcomer the full roster.
	for _, member := range members {
		if member.UserID == user.UserID {
			continue
		}
		s.registry.Send(ctx, member.UserID, session.Event{
			Type:   session.EventUserJoined,
			RoomID: roomID,
			Users:  members,
		})
	}
	s.registry.Send(ctx, user.UserID, session.Event{
		Type:   session.EventRoomJoined,
		RoomID: roomID,
		Users:  members,
	})
	return nil
}

// startGame creates the game record, reassigns every member from the room to
// the game, fans out the game-start event, and then retires the room: the
// common room is cleared for the next wave, private rooms are deleted.
//
// Every member's event is enqueued before the room is cleared or deleted, so
// observers see a roster equal to the room at fill time.
func (s *Server) startGame(ctx context.Context, room types.Room, members []types.User) error {
	game := types.NewGame(members, gamePrompt)
	if _, err := s.store.InsertGame(ctx, game); err != nil {
		return asInternal(ctx, err)
	}

	for i := range members {
		gameID := game.GameID
		unlockUser := s.userLocks.Lock(members[i].UserID)
		members[i].ClearRoom()
		members[i].GameID = &gameID
		_, err := s.store.UpsertUser(ctx, members[i])
		unlockUser()
		if err != nil {
			logging.Error(ctx, "Failed to move user into game",
				zap.String("memberId", members[i].UserID), zap.Error(err))
		}
	}

	metrics.GamesStarted.Inc()
	logging.Info(ctx, "Starting game",
		zap.String("gameId", game.GameID), zap.Int("players", len(members)))

	for _, member := range members {
		s.registry.Send(ctx, member.UserID, session.Event{
			Type:   session.EventAllUsersJoined,
			RoomID: room.RoomID,
			Users:  members,
		})
	}

	if room.RoomID == types.CommonRoomID {
		room.ClearUsers()
		if _, err := s.store.UpsertRoom(ctx, room); err != nil {
			return asInternal(ctx, err)
		}
	} else {
		if err := s.store.DeleteRoom(ctx, room.RoomID); err != nil {
			return asInternal(ctx, err)
		}
	}
	return nil
}
