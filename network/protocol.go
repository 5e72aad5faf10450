package network

import (
	"encoding/json"
	"errors"
)

// Message types exchanged with clients. The wire format is one JSON object
// per frame with a "type" discriminator field.
const (
	MsgTypeJoinRoom         = "join_room"
	MsgTypeLeaveRoom        = "leave_room"
	MsgTypeInitializedLevel = "initialized_level"

	MsgTypeRoomList   = "room_list"
	MsgTypeJoinedRoom = "joined_room"
	MsgTypeInitLevel  = "init_level"
	MsgTypeStartGame  = "start_game"
)

// Player colors, assigned by arrival order within a room.
const (
	ColorBlue  = "blue"
	ColorGreen = "green"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
)

// ClientMessage is the closed set of inbound variants. Decoding happens once
// at the boundary; the dispatcher switches exhaustively on Type.
type ClientMessage struct {
	Type   string `json:"type"`
	RoomID int    `json:"roomId,omitempty"`
}

// DecodeClientMessage parses an inbound frame. Unparseable payloads and
// payloads without a type field return ErrMalformedMessage; a type outside
// the known set returns ErrUnknownType. Callers drop both without replying.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, ErrMalformedMessage
	}
	if msg.Type == "" {
		return ClientMessage{}, ErrMalformedMessage
	}
	switch msg.Type {
	case MsgTypeJoinRoom, MsgTypeLeaveRoom, MsgTypeInitializedLevel:
		return msg, nil
	default:
		return ClientMessage{}, ErrUnknownType
	}
}

// SpawnAssignment maps each color to one of the level's spawn slots.
// The two slots are always distinct.
type SpawnAssignment struct {
	Blue  int `json:"blue"`
	Green int `json:"green"`
}

type RoomListMessage struct {
	Type   string   `json:"type"`
	Status []string `json:"status"`
}

func NewRoomListMessage(status []string) RoomListMessage {
	return RoomListMessage{Type: MsgTypeRoomList, Status: status}
}

type JoinedRoomMessage struct {
	Type   string `json:"type"`
	RoomID int    `json:"roomId"`
	Color  string `json:"color"`
}

func NewJoinedRoomMessage(roomID int, color string) JoinedRoomMessage {
	return JoinedRoomMessage{Type: MsgTypeJoinedRoom, RoomID: roomID, Color: color}
}

type InitLevelMessage struct {
	Type           string          `json:"type"`
	SpawnLocations SpawnAssignment `json:"spawnLocations"`
	Level          int             `json:"level"`
}

func NewInitLevelMessage(spawns SpawnAssignment, level int) InitLevelMessage {
	return InitLevelMessage{Type: MsgTypeInitLevel, SpawnLocations: spawns, Level: level}
}

type StartGameMessage struct {
	Type string `json:"type"`
}

func NewStartGameMessage() StartGameMessage {
	return StartGameMessage{Type: MsgTypeStartGame}
}

// ServerEnvelope is the client-side view of any server message. Fields not
// present for a given type are left at their zero value.
type ServerEnvelope struct {
	Type           string          `json:"type"`
	Status         []string        `json:"status"`
	RoomID         int             `json:"roomId"`
	Color          string          `json:"color"`
	SpawnLocations SpawnAssignment `json:"spawnLocations"`
	Level          int             `json:"level"`
}

// DecodeServerMessage parses a server frame on the client side.
func DecodeServerMessage(data []byte) (ServerEnvelope, error) {
	var env ServerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ServerEnvelope{}, ErrMalformedMessage
	}
	if env.Type == "" {
		return ServerEnvelope{}, ErrMalformedMessage
	}
	return env, nil
}
