package eitheror

import (
	"encoding/json"
	"errors"
)

// Client -> server event names.
const (
	EventCreateRoom       = "createRoom"
	EventJoinRoom         = "joinRoom"
	EventStartGame        = "startGame"
	EventSubmitAnswer     = "submitAnswer"
	EventSubmitGuess      = "submitGuess"
	EventRevealResults    = "revealResults"
	EventStartNextRound   = "startNextRound"
	EventRevealScoreboard = "revealScoreboard"
)

// Server -> client event names.
const (
	EventSession             = "session"
	EventRoomCreated         = "roomCreated"
	EventRoomUpdate          = "roomUpdate"
	EventHostAssignment      = "hostAssignment"
	EventGameStarted         = "gameStarted"
	EventNewTurn             = "newTurn"
	EventStartGuessing       = "startGuessing"
	EventAllGuessesSubmitted = "allGuessesSubmitted"
	EventRoundResults        = "roundResults"
	EventGameOver            = "gameOver"
	EventScoreBoard          = "scoreBoard"
	EventErrorMessage        = "errorMessage"
)

// Event is the envelope written to clients.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Outbound pairs an event with its audience.
type Outbound struct {
	// To is a connection id; empty means every connection in the room.
	To    string
	Event Event
}

func broadcast(name string, data any) Outbound {
	return Outbound{Event: Event{Name: name, Data: data}}
}

func direct(to, name string, data any) Outbound {
	return Outbound{To: to, Event: Event{Name: name, Data: data}}
}

type SessionData struct {
	ConnectionID string `json:"connectionId"`
}

type RoomCreatedData struct {
	NewRoomCode string   `json:"newRoomCode"`
	Players     []string `json:"players"`
}

type RoomUpdateData struct {
	Players []string `json:"players"`
}

type HostAssignmentData struct {
	IsHost bool `json:"isHost"`
}

type GameStartedData struct {
	RoomCode string `json:"roomCode"`
}

type NewTurnData struct {
	CurrentPlayerID   string   `json:"currentPlayerId"`
	CurrentPlayerName string   `json:"currentPlayerName"`
	Question          Question `json:"question"`
	RoomCode          string   `json:"roomCode"`
}

type StartGuessingData struct {
	RoomCode        string   `json:"roomCode"`
	CurrentPlayerID string   `json:"currentPlayerId"`
	Question        Question `json:"question"`
}

type AllGuessesSubmittedData struct {
	RoomCode string `json:"roomCode"`
}

type GuessResult struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Guess      Choice `json:"guess"`
	IsCorrect  bool   `json:"isCorrect"`
}

type RoundResultsData struct {
	RoomCode          string        `json:"roomCode"`
	CurrentPlayerName string        `json:"currentPlayerName"`
	CorrectAnswerText string        `json:"correctAnswerText"`
	Results           []GuessResult `json:"results"`
}

type GameOverData struct {
	RoomCode string `json:"roomCode"`
}

type ScoreBoardData struct {
	FinalScores []Standing `json:"finalScores"`
}

type ErrorMessageData struct {
	Text string `json:"text"`
	Code string `json:"code"`
}

func errorEvent(to string, err error) Outbound {
	data := ErrorMessageData{Text: err.Error(), Code: "Error"}
	var ge GameError
	if errors.As(err, &ge) {
		data.Code = ge.Code()
	}
	return direct(to, EventErrorMessage, data)
}

// Message is the envelope read from clients.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
