// Package types holds the persisted domain entities shared across the lobby
// server: users, rooms, and games. Entities are stored as JSON in Redis, so
// the json tags below are the storage schema.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	pb "github.com/blazerhq/blazer/gen/proto"
)

// CommonRoomID is the reserved identifier of the always-on matchmaking room.
// The common room is created at startup and cleared, never deleted, when it
// fills.
const CommonRoomID = "COMMON_ROOM"

// GameStatus tracks the lifecycle of a game record.
type GameStatus string

const (
	GameStatusInit       GameStatus = "init"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusEnd        GameStatus = "end"
)

// User is a persistent player identity. Users are created by Ping and never
// deleted; RoomID and GameID track the current assignment, if any.
type User struct {
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name"`
	GamesPlayed uint32  `json:"games_played"`
	Rank        uint32  `json:"rank"`
	RoomID      *string `json:"room_id,omitempty"`
	GameID      *string `json:"game_id,omitempty"`
}

// NewUser mints a fresh identity with zeroed counters.
func NewUser(userName string) User {
	return User{
		UserID:   uuid.NewString(),
		UserName: userName,
	}
}

// AssignRoom records the room the user currently occupies.
func (u *User) AssignRoom(roomID string) {
	u.RoomID = &roomID
}

// ClearRoom drops the current room assignment.
func (u *User) ClearRoom() {
	u.RoomID = nil
}

// Details converts the stored user to its wire representation.
func (u User) Details() pb.UserDetails {
	return pb.UserDetails{
		UserId:      u.UserID,
		UserName:    u.UserName,
		GamesPlayed: u.GamesPlayed,
		Rank:        u.Rank,
	}
}

// Room is a lobby with bounded capacity. Users holds member ids in join
// order.
type Room struct {
	RoomID   string   `json:"room_id"`
	Capacity int      `json:"room_size"`
	Users    []string `json:"users"`
}

func NewRoom(roomID string, capacity int) Room {
	return Room{
		RoomID:   roomID,
		Capacity: capacity,
		Users:    []string{},
	}
}

// HasUser reports whether userID is already a member.
func (r *Room) HasUser(userID string) bool {
	for _, id := range r.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the member list has reached capacity.
func (r *Room) IsFull() bool {
	return len(r.Users) >= r.Capacity
}

// AddUser appends userID to the member list and returns the new size.
func (r *Room) AddUser(userID string) int {
	r.Users = append(r.Users, userID)
	return len(r.Users)
}

// RemoveUser removes userID from the member list if present and returns the
// new size.
func (r *Room) RemoveUser(userID string) int {
	for i, id := range r.Users {
		if id == userID {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			break
		}
	}
	return len(r.Users)
}

// ClearUsers empties the member list. Used for the common room on fill.
func (r *Room) ClearUsers() {
	r.Users = []string{}
}

// Game is created atomically with room fill detection.
type Game struct {
	GameID      string     `json:"game_id"`
	UsersInGame []string   `json:"users_in_game"`
	Status      GameStatus `json:"status"`
	Prompt      string     `json:"prompt"`
}

// NewGame creates a game in the init state for the given members.
func NewGame(users []User, prompt string) Game {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return Game{
		GameID:      NewGameID(time.Now()),
		UsersInGame: ids,
		Status:      GameStatusInit,
		Prompt:      prompt,
	}
}

// NewGameID returns a time-ordered identifier: a zero-padded nanosecond
// timestamp plus a short random suffix. Ids sort lexicographically by
// creation time.
func NewGameID(t time.Time) string {
	return fmt.Sprintf("%020d-%s", t.UnixNano(), uuid.NewString()[:8])
}
