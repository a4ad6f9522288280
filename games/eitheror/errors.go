/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package eitheror

// GameError is returned for every rejected client action. The room is left
// untouched whenever one is returned.
type GameError string

func (e GameError) Error() string {
	return string(e)
}

const (
	ErrRoomNotFound           GameError = "room not found"
	ErrNotHost                GameError = "only the host can do that"
	ErrNotEnoughPlayers       GameError = "at least two players are needed to start"
	ErrInvalidPhaseTransition GameError = "that action is not allowed right now"
	ErrNotAnsweringPlayer     GameError = "it is not your turn to answer"
	ErrAnswererCannotGuess    GameError = "you cannot guess your own answer"
	ErrGuessesIncomplete      GameError = "not everyone has guessed yet"
	ErrDuplicateName          GameError = "that name is already taken in this room"
	ErrInvalidPayload         GameError = "invalid message"
	ErrRoomFull               GameError = "the room is full"
	ErrGameInProgress         GameError = "the game has already started"
	ErrPlayerNotFound         GameError = "player not found"
	ErrRateLimited            GameError = "slow down"
	ErrNoQuestions            GameError = "question pool is empty"
)

// errorCodes maps each error to the stable code sent to clients.
var errorCodes = map[GameError]string{
	ErrRoomNotFound:           "RoomNotFound",
	ErrNotHost:                "NotHost",
	ErrNotEnoughPlayers:       "NotEnoughPlayers",
	ErrInvalidPhaseTransition: "InvalidPhaseTransition",
	ErrNotAnsweringPlayer:     "NotAnsweringPlayer",
	ErrAnswererCannotGuess:    "AnswererCannotGuess",
	ErrGuessesIncomplete:      "GuessesIncomplete",
	ErrDuplicateName:          "DuplicateName",
	ErrInvalidPayload:         "InvalidPayload",
	ErrRoomFull:               "RoomFull",
	ErrGameInProgress:         "GameInProgress",
	ErrPlayerNotFound:         "PlayerNotFound",
	ErrRateLimited:            "RateLimited",
	ErrNoQuestions:            "NoQuestions",
}

// Code returns the client-facing error code.
func (e GameError) Code() string {
	if c, ok := errorCodes[e]; ok {
		return c
	}
	return "Error"
}
