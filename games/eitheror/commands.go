package eitheror

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 24

// Choice is one of the two options of a question.
type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
)

func (c Choice) Valid() bool {
	return c == ChoiceA || c == ChoiceB
}

// Command is a validated client request. Exactly one of the concrete types
// below is produced per inbound message.
type Command interface {
	// Room returns the room code named by the request, if any.
	Room() string
}

type CreateRoom struct {
	PlayerName string `json:"playerName"`
}

type JoinRoom struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type StartGame struct {
	RoomCode string `json:"roomCode"`
}

type SubmitAnswer struct {
	RoomCode          string `json:"roomCode"`
	CurrentPlayerName string `json:"currentPlayerName"`
	Answer            Choice `json:"answer"`
}

type SubmitGuess struct {
	RoomCode string `json:"roomCode"`
	Guess    Choice `json:"guess"`
}

type RevealResults struct {
	RoomCode string `json:"roomCode"`
}

type StartNextRound struct {
	RoomCode string `json:"roomCode"`
}

type RevealScoreboard struct {
	RoomCode string `json:"roomCode"`
}

func (CreateRoom) Room() string         { return "" }
func (c JoinRoom) Room() string         { return c.RoomCode }
func (c StartGame) Room() string        { return c.RoomCode }
func (c SubmitAnswer) Room() string     { return c.RoomCode }
func (c SubmitGuess) Room() string      { return c.RoomCode }
func (c RevealResults) Room() string    { return c.RoomCode }
func (c StartNextRound) Room() string   { return c.RoomCode }
func (c RevealScoreboard) Room() string { return c.RoomCode }

// DecodeCommand parses a client frame into a Command. Unknown events,
// malformed JSON and missing required fields all yield ErrInvalidPayload.
func DecodeCommand(frame []byte) (Command, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrInvalidPayload
	}

	switch msg.Event {
	case EventCreateRoom:
		var c CreateRoom
		if err := decodeData(msg.Data, &c); err != nil {
			return nil, err
		}
		name, err := normalizeName(c.PlayerName)
		if err != nil {
			return nil, err
		}
		c.PlayerName = name
		return c, nil

	case EventJoinRoom:
		var c JoinRoom
		if err := decodeData(msg.Data, &c); err != nil {
			return nil, err
		}
		name, err := normalizeName(c.PlayerName)
		if err != nil {
			return nil, err
		}
		c.PlayerName = name
		c.RoomCode = NormalizeCode(c.RoomCode)
		if !ValidCode(c.RoomCode) {
			return nil, ErrInvalidPayload
		}
		return c, nil

	case EventSubmitAnswer:
		var c SubmitAnswer
		if err := decodeData(msg.Data, &c); err != nil {
			return nil, err
		}
		c.Answer = Choice(strings.ToUpper(string(c.Answer)))
		if !c.Answer.Valid() {
			return nil, ErrInvalidPayload
		}
		c.RoomCode = NormalizeCode(c.RoomCode)
		return c, nil

	case EventSubmitGuess:
		var c SubmitGuess
		if err := decodeData(msg.Data, &c); err != nil {
			return nil, err
		}
		c.Guess = Choice(strings.ToUpper(string(c.Guess)))
		if !c.Guess.Valid() {
			return nil, ErrInvalidPayload
		}
		c.RoomCode = NormalizeCode(c.RoomCode)
		return c, nil

	case EventStartGame:
		code, err := decodeRoomCode(msg.Data)
		return StartGame{RoomCode: code}, err

	case EventRevealResults:
		code, err := decodeRoomCode(msg.Data)
		return RevealResults{RoomCode: code}, err

	case EventStartNextRound:
		code, err := decodeRoomCode(msg.Data)
		return StartNextRound{RoomCode: code}, err

	case EventRevealScoreboard:
		code, err := decodeRoomCode(msg.Data)
		return RevealScoreboard{RoomCode: code}, err
	}

	return nil, ErrInvalidPayload
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrInvalidPayload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrInvalidPayload
	}

	return nil
}

// decodeRoomCode accepts a missing payload, {} / {"roomCode": "..."}, or a
// bare JSON string holding the code.
func decodeRoomCode(data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	if trimmed[0] == '"' {
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return "", ErrInvalidPayload
		}
		return NormalizeCode(code), nil
	}

	var payload struct {
		RoomCode string `json:"roomCode"`
	}
	if err := decodeData(trimmed, &payload); err != nil {
		return "", err
	}

	return NormalizeCode(payload.RoomCode), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidPayload
	}
	return name, nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
