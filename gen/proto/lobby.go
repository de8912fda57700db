// Package lobbypb holds the hand-maintained wire types for the blazer.v1.Lobby
// service. Messages travel as JSON (see codec.go), so the json tags below are
// the wire schema.
package lobbypb

// RoomServiceRequest.RequestType values.
const (
	RequestTypeCreateRoom uint32 = 1
	RequestTypeJoinRoom   uint32 = 2
)

// RoomServiceResponse.MessageType values.
const (
	MessageTypeInit       uint32 = 1
	MessageTypeUserJoined uint32 = 2
	MessageTypeGameStart  uint32 = 3
)

// PingRequest carries an optional user id. A nil UserId asks the server to
// mint a fresh identity.
type PingRequest struct {
	UserId *string `json:"user_id,omitempty"`
}

func (x *PingRequest) GetUserId() string {
	if x != nil && x.UserId != nil {
		return *x.UserId
	}
	return ""
}

type PingResponse struct {
	UserId   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// UserDetails is the roster entry pushed to clients on membership changes.
type UserDetails struct {
	UserId      string `json:"user_id"`
	UserName    string `json:"user_name"`
	GamesPlayed uint32 `json:"games_played"`
	Rank        uint32 `json:"rank"`
}

type RoomServiceRequest struct {
	ClientId    string  `json:"client_id"`
	RoomId      *string `json:"room_id,omitempty"`
	RequestType uint32  `json:"request_type"`
}

func (x *RoomServiceRequest) GetClientId() string {
	if x != nil {
		return x.ClientId
	}
	return ""
}

func (x *RoomServiceRequest) GetRoomId() string {
	if x != nil && x.RoomId != nil {
		return *x.RoomId
	}
	return ""
}

type RoomServiceResponse struct {
	RoomId      string        `json:"room_id"`
	MessageType uint32        `json:"message_type"`
	UserDetails []UserDetails `json:"user_details"`
}
