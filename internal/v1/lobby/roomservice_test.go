package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/store"
	"github.com/blazerhq/blazer/internal/v1/types"
)

func assertStatusCode(t *testing.T, err error, want codes.Code) *status.Status {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, want, st.Code())
	return st
}

func TestRoomService_InvalidRequestType(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	user := ts.mustCreateUser(t, "swift otter")

	stream := newMockStream(context.Background())
	err := ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    user.UserID,
		RequestType: 7,
	}, stream)

	assertStatusCode(t, err, codes.InvalidArgument)
	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_UnknownUser(t *testing.T) {
	ts := newTestServer(t, defaultConfig())

	stream := newMockStream(context.Background())
	err := ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    "ghost",
		RequestType: pb.RequestTypeJoinRoom,
	}, stream)

	st := assertStatusCode(t, err, codes.NotFound)
	assert.Contains(t, st.Message(), "ghost")
}

func TestRoomService_CreateRoom(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	user := ts.mustCreateUser(t, "swift otter")

	ctx, cancel := context.WithCancel(context.Background())
	stream := newMockStream(ctx)
	done := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    user.UserID,
		RequestType: pb.RequestTypeCreateRoom,
	}, stream)

	resp := waitResponse(t, stream)
	assert.Equal(t, uint32(pb.MessageTypeInit), resp.MessageType)
	assert.Len(t, resp.RoomId, 6)
	require.Len(t, resp.UserDetails, 1)
	assert.Equal(t, user.UserID, resp.UserDetails[0].UserId)

	// The room exists but the creator is not a member; membership comes from
	// a subsequent join.
	room, err := ts.store.FindRoom(context.Background(), resp.RoomId)
	require.NoError(t, err)
	assert.Equal(t, 2, room.Capacity)
	assert.Empty(t, room.Users)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_CreateRoom_RequestedID(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	user := ts.mustCreateUser(t, "swift otter")

	ctx, cancel := context.WithCancel(context.Background())
	stream := newMockStream(ctx)
	done := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    user.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeCreateRoom,
	}, stream)

	resp := waitResponse(t, stream)
	assert.Equal(t, "424242", resp.RoomId)

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestRoomService_CreateRoom_AlreadyExists(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	user := ts.mustCreateUser(t, "swift otter")

	_, err := ts.store.UpsertRoom(context.Background(), types.NewRoom("424242", 2))
	require.NoError(t, err)

	stream := newMockStream(context.Background())
	err = ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    user.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeCreateRoom,
	}, stream)

	assertStatusCode(t, err, codes.AlreadyExists)
	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_JoinRoomNotFound(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	user := ts.mustCreateUser(t, "swift otter")

	stream := newMockStream(context.Background())
	err := ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    user.UserID,
		RoomId:      strPtr("999999"),
		RequestType: pb.RequestTypeJoinRoom,
	}, stream)

	st := assertStatusCode(t, err, codes.NotFound)
	assert.Contains(t, st.Message(), "999999")
}

func TestRoomService_JoinNotifiesExistingMembers(t *testing.T) {
	ts := newTestServer(t, Config{RoomCapacity: 3, CommonRoomCapacity: 3})
	alice := ts.mustCreateUser(t, "alice")
	bob := ts.mustCreateUser(t, "bob")

	_, err := ts.store.UpsertRoom(context.Background(), types.NewRoom("424242", 3))
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	streamA := newMockStream(ctxA)
	doneA := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA)

	resp := waitResponse(t, streamA)
	assert.Equal(t, uint32(pb.MessageTypeInit), resp.MessageType)
	require.Len(t, resp.UserDetails, 1)

	ctxB, cancelB := context.WithCancel(context.Background())
	streamB := newMockStream(ctxB)
	doneB := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    bob.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamB)

	// Bob gets the full roster; Alice is told about the newcomer.
	respB := waitResponse(t, streamB)
	assert.Equal(t, uint32(pb.MessageTypeInit), respB.MessageType)
	require.Len(t, respB.UserDetails, 2)

	respA := waitResponse(t, streamA)
	assert.Equal(t, uint32(pb.MessageTypeUserJoined), respA.MessageType)
	require.Len(t, respA.UserDetails, 2)
	assert.Equal(t, alice.UserID, respA.UserDetails[0].UserId)
	assert.Equal(t, bob.UserID, respA.UserDetails[1].UserId)

	cancelA()
	cancelB()
	require.NoError(t, waitDone(t, doneA))
	require.NoError(t, waitDone(t, doneB))
}

func TestRoomService_CommonRoomMatchmaking(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")
	bob := ts.mustCreateUser(t, "bob")

	// A join without a room id targets the common room.
	streamA := newMockStream(context.Background())
	doneA := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA)

	respA := waitResponse(t, streamA)
	assert.Equal(t, uint32(pb.MessageTypeInit), respA.MessageType)
	assert.Equal(t, types.CommonRoomID, respA.RoomId)

	streamB := newMockStream(context.Background())
	doneB := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    bob.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, streamB)

	// The second join fills the room; both players get the game-start fanout
	// and both streams close.
	gameStartA := waitResponse(t, streamA)
	gameStartB := waitResponse(t, streamB)
	for _, resp := range []*pb.RoomServiceResponse{gameStartA, gameStartB} {
		assert.Equal(t, uint32(pb.MessageTypeGameStart), resp.MessageType)
		assert.Equal(t, types.CommonRoomID, resp.RoomId)
		require.Len(t, resp.UserDetails, 2)
	}

	require.NoError(t, waitDone(t, doneA))
	require.NoError(t, waitDone(t, doneB))

	// The common room survives the fill, emptied for the next wave.
	room, err := ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	assert.Empty(t, room.Users)

	// Both players moved from the room into the same game.
	storedA, err := ts.store.FindUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	storedB, err := ts.store.FindUser(context.Background(), bob.UserID)
	require.NoError(t, err)
	assert.Nil(t, storedA.RoomID)
	assert.Nil(t, storedB.RoomID)
	require.NotNil(t, storedA.GameID)
	require.NotNil(t, storedB.GameID)
	assert.Equal(t, *storedA.GameID, *storedB.GameID)

	game, err := ts.store.FindGame(context.Background(), *storedA.GameID)
	require.NoError(t, err)
	assert.Equal(t, types.GameStatusInit, game.Status)
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, game.UsersInGame)

	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_PrivateRoomDeletedAfterGameStart(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")
	bob := ts.mustCreateUser(t, "bob")

	_, err := ts.store.UpsertRoom(context.Background(), types.NewRoom("424242", 2))
	require.NoError(t, err)

	streamA := newMockStream(context.Background())
	doneA := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA)
	waitResponse(t, streamA)

	streamB := newMockStream(context.Background())
	doneB := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    bob.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamB)

	assert.Equal(t, uint32(pb.MessageTypeGameStart), waitResponse(t, streamA).MessageType)
	assert.Equal(t, uint32(pb.MessageTypeGameStart), waitResponse(t, streamB).MessageType)
	require.NoError(t, waitDone(t, doneA))
	require.NoError(t, waitDone(t, doneB))

	// Private rooms do not outlive their game.
	_, err = ts.store.FindRoom(context.Background(), "424242")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoomService_DuplicateJoinRejected(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")

	// Seed alice as an existing member of the common room.
	room, err := ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	room.AddUser(alice.UserID)
	_, err = ts.store.UpsertRoom(context.Background(), room)
	require.NoError(t, err)

	stream := newMockStream(context.Background())
	err = ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, stream)

	st := assertStatusCode(t, err, codes.InvalidArgument)
	assert.Contains(t, st.Message(), "same room")
	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_ReplacedSessionReleasesMembership(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")

	streamA := newMockStream(context.Background())
	doneA := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA)
	waitResponse(t, streamA)

	// A second stream replaces the session but its own join fails, so it
	// never takes over the membership.
	streamA2 := newMockStream(context.Background())
	err := ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RoomId:      strPtr("999999"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA2)
	assertStatusCode(t, err, codes.NotFound)

	// The replaced stream releases the slot it held instead of stranding it.
	require.NoError(t, waitDone(t, doneA))

	room, err := ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	assert.Empty(t, room.Users)

	stored, err := ts.store.FindUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.RoomID)
	assert.Equal(t, 0, ts.registry.Len())

	// Rejoining works; the user is not locked out by their own ghost.
	ctx3, cancel3 := context.WithCancel(context.Background())
	streamA3 := newMockStream(ctx3)
	doneA3 := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA3)
	resp := waitResponse(t, streamA3)
	assert.Equal(t, uint32(pb.MessageTypeInit), resp.MessageType)

	room, err = ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.UserID}, room.Users)

	cancel3()
	require.NoError(t, waitDone(t, doneA3))
}

func TestRoomService_ReplacedSessionSingleResidency(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")

	_, err := ts.store.UpsertRoom(context.Background(), types.NewRoom("424242", 2))
	require.NoError(t, err)

	streamA := newMockStream(context.Background())
	doneA := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, streamA)
	waitResponse(t, streamA)

	// A second stream moves the user into a private room. The replaced
	// session must release only the common-room slot, never the new one.
	ctxB, cancelB := context.WithCancel(context.Background())
	streamB := newMockStream(ctxB)
	doneB := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, streamB)
	waitResponse(t, streamB)

	require.NoError(t, waitDone(t, doneA))

	common, err := ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	assert.Empty(t, common.Users)

	private, err := ts.store.FindRoom(context.Background(), "424242")
	require.NoError(t, err)
	assert.Equal(t, []string{alice.UserID}, private.Users)

	stored, err := ts.store.FindUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.RoomID)
	assert.Equal(t, "424242", *stored.RoomID)

	cancelB()
	require.NoError(t, waitDone(t, doneB))

	// The surviving session's disconnect cleans up the private room.
	private, err = ts.store.FindRoom(context.Background(), "424242")
	require.NoError(t, err)
	assert.Empty(t, private.Users)
	assert.Equal(t, 0, ts.registry.Len())
}

func TestRoomService_RoomFull(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	charlie := ts.mustCreateUser(t, "charlie")

	room := types.NewRoom("424242", 2)
	room.AddUser("u1")
	room.AddUser("u2")
	_, err := ts.store.UpsertRoom(context.Background(), room)
	require.NoError(t, err)

	stream := newMockStream(context.Background())
	err = ts.srv.RoomService(&pb.RoomServiceRequest{
		ClientId:    charlie.UserID,
		RoomId:      strPtr("424242"),
		RequestType: pb.RequestTypeJoinRoom,
	}, stream)

	st := assertStatusCode(t, err, codes.InvalidArgument)
	assert.Contains(t, st.Message(), "maximum capacity")
}

func TestRoomService_DisconnectCleansUp(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	alice := ts.mustCreateUser(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	stream := newMockStream(ctx)
	done := startStream(ts.srv, &pb.RoomServiceRequest{
		ClientId:    alice.UserID,
		RequestType: pb.RequestTypeJoinRoom,
	}, stream)
	waitResponse(t, stream)

	cancel()
	require.NoError(t, waitDone(t, done))

	// The slot is reclaimed and the user's room assignment cleared.
	room, err := ts.store.FindRoom(context.Background(), types.CommonRoomID)
	require.NoError(t, err)
	assert.Empty(t, room.Users)

	stored, err := ts.store.FindUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.RoomID)

	assert.Equal(t, 0, ts.registry.Len())
}
