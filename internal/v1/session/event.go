// Package session owns the process-local registry of connected streaming
// sessions and the domain events pushed through their sinks.
package session

import (
	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/types"
)

// EventType identifies a membership event.
type EventType int

const (
	// EventRoomCreated tells the caller a private room now exists.
	EventRoomCreated EventType = iota + 1
	// EventRoomJoined tells the caller they joined a room; Users carries the
	// full roster. On the wire this is the same Init message as RoomCreated.
	EventRoomJoined
	// EventUserJoined tells existing members someone else joined.
	EventUserJoined
	// EventAllUsersJoined tells every member the room filled and a game is
	// starting. It is the only event that closes the stream.
	EventAllUsersJoined
)

func (t EventType) String() string {
	switch t {
	case EventRoomCreated:
		return "room_created"
	case EventRoomJoined:
		return "room_joined"
	case EventUserJoined:
		return "user_joined"
	case EventAllUsersJoined:
		return "all_users_joined"
	default:
		return "unknown"
	}
}

// Event is a membership change delivered to a session sink.
type Event struct {
	Type   EventType
	RoomID string
	Users  []types.User
}

// ClosesStream reports whether the session stream terminates after this
// event is delivered.
func (e Event) ClosesStream() bool {
	return e.Type == EventAllUsersJoined
}

// Response translates the event to its wire representation.
func (e Event) Response() *pb.RoomServiceResponse {
	var messageType uint32
	switch e.Type {
	case EventRoomCreated, EventRoomJoined:
		messageType = pb.MessageTypeInit
	case EventUserJoined:
		messageType = pb.MessageTypeUserJoined
	case EventAllUsersJoined:
		messageType = pb.MessageTypeGameStart
	}

	details := make([]pb.UserDetails, 0, len(e.Users))
	for _, u := range e.Users {
		details = append(details, u.Details())
	}

	return &pb.RoomServiceResponse{
		RoomId:      e.RoomID,
		MessageType: messageType,
		UserDetails: details,
	}
}
