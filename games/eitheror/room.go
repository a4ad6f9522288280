package eitheror

import (
	"math/rand/v2"
	"slices"
)

// Phase is a room's position in the turn lifecycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseAwaitingAnswer
	PhaseAwaitingGuesses
	PhaseRoundRevealed
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseAwaitingGuesses:
		return "awaiting_guesses"
	case PhaseRoundRevealed:
		return "round_revealed"
	case PhaseGameOver:
		return "game_over"
	}
	return "unknown"
}

// Player is a room member. ID is the id of the player's connection.
type Player struct {
	ID   string
	Name string
}

// RoomOptions tunes room rules.
type RoomOptions struct {
	// MaxPlayers caps membership; zero means no cap.
	MaxPlayers int

	// AllowLateJoin admits players after the game has started.
	AllowLateJoin bool

	// Intn returns a uniform random number in [0, n). Defaults to rand.IntN.
	Intn func(n int) int
}

// Room holds the state of one game. It is not safe for concurrent use; a Hub
// owns each Room and serialises every call.
type Room struct {
	code    string
	hostID  string
	players []Player
	phase   Phase

	answered      map[string]struct{}
	usedQuestions map[int]struct{}

	answererID      string
	question        Question
	answer          Choice
	guesses         map[string]Choice
	guessesComplete bool
	scores          map[string]int
	round           int

	// results is the last roundResults payload, replayed to late joiners.
	results RoundResultsData

	pool *QuestionPool
	opts RoomOptions
}

func NewRoom(code string, host Player, pool *QuestionPool, opts RoomOptions) *Room {
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}

	return &Room{
		code:          code,
		hostID:        host.ID,
		players:       []Player{host},
		phase:         PhaseLobby,
		answered:      make(map[string]struct{}),
		usedQuestions: make(map[int]struct{}),
		guesses:       make(map[string]Choice),
		scores:        map[string]int{host.ID: 0},
		pool:          pool,
		opts:          opts,
	}
}

func (r *Room) Code() string     { return r.code }
func (r *Room) Phase() Phase     { return r.phase }
func (r *Room) HostID() string   { return r.hostID }
func (r *Room) Round() int       { return r.round }
func (r *Room) Len() int         { return len(r.players) }
func (r *Room) Answerer() string { return r.answererID }

// Score returns the player's current score.
func (r *Room) Score(id string) int {
	return r.scores[id]
}

// Players returns a copy of the members in join order.
func (r *Room) Players() []Player {
	return slices.Clone(r.players)
}

func (r *Room) Has(id string) bool {
	return r.indexOf(id) >= 0
}

func (r *Room) indexOf(id string) int {
	return slices.IndexFunc(r.players, func(p Player) bool { return p.ID == id })
}

func (r *Room) player(id string) (Player, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.players[i], true
	}
	return Player{}, false
}

func (r *Room) names() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Name)
	}
	return names
}

// Created returns the events sent to the creator of a new room.
func (r *Room) Created() []Outbound {
	return []Outbound{
		direct(r.hostID, EventRoomCreated, RoomCreatedData{NewRoomCode: r.code, Players: r.names()}),
		direct(r.hostID, EventHostAssignment, HostAssignmentData{IsHost: true}),
	}
}

// Join appends p to the room.
func (r *Room) Join(p Player) ([]Outbound, error) {
	if r.phase != PhaseLobby && !r.opts.AllowLateJoin {
		return nil, ErrGameInProgress
	}
	if r.opts.MaxPlayers > 0 && len(r.players) >= r.opts.MaxPlayers {
		return nil, ErrRoomFull
	}
	if r.Has(p.ID) {
		return nil, ErrInvalidPhaseTransition
	}
	for _, existing := range r.players {
		if sameName(existing.Name, p.Name) {
			return nil, ErrDuplicateName
		}
	}

	r.players = append(r.players, p)
	r.scores[p.ID] = 0

	out := []Outbound{
		broadcast(EventRoomUpdate, RoomUpdateData{Players: r.names()}),
		direct(p.ID, EventHostAssignment, HostAssignmentData{IsHost: false}),
	}

	return append(out, r.snapshot(p.ID)...), nil
}

// snapshot catches a late joiner up with the game in progress.
func (r *Room) snapshot(to string) []Outbound {
	if r.phase == PhaseLobby {
		return nil
	}

	out := []Outbound{direct(to, EventGameStarted, GameStartedData{RoomCode: r.code})}

	switch r.phase {
	case PhaseAwaitingAnswer:
		out = append(out, direct(to, EventNewTurn, r.newTurnData()))
	case PhaseAwaitingGuesses:
		out = append(out, direct(to, EventStartGuessing, r.startGuessingData()))
	case PhaseRoundRevealed:
		out = append(out, direct(to, EventRoundResults, r.results))
	case PhaseGameOver:
		out = append(out, direct(to, EventGameOver, GameOverData{RoomCode: r.code}))
	}

	return out
}

// Leave removes the player with the given id. empty reports whether the room
// has no players left, in which case no events are returned.
func (r *Room) Leave(id string) (out []Outbound, empty bool, err error) {
	i := r.indexOf(id)
	if i < 0 {
		return nil, len(r.players) == 0, ErrPlayerNotFound
	}

	r.players = slices.Delete(r.players, i, i+1)
	delete(r.guesses, id)
	delete(r.answered, id)
	delete(r.scores, id)

	if len(r.players) == 0 {
		return nil, true, nil
	}

	out = append(out, broadcast(EventRoomUpdate, RoomUpdateData{Players: r.names()}))

	if r.hostID == id {
		r.hostID = r.players[0].ID
		out = append(out, direct(r.hostID, EventHostAssignment, HostAssignmentData{IsHost: true}))
	}

	switch r.phase {
	case PhaseAwaitingAnswer, PhaseAwaitingGuesses:
		switch {
		case len(r.players) < 2:
			out = append(out, r.endGame()...)
		case r.answererID == id:
			out = append(out, r.advance()...)
		case r.phase == PhaseAwaitingGuesses:
			out = append(out, r.checkGuesses()...)
		}

	case PhaseRoundRevealed:
		if len(r.players) < 2 {
			out = append(out, r.endGame()...)
		}
	}

	return out, false, nil
}

// StartGame moves the room out of the lobby and starts the first turn.
func (r *Room) StartGame(by string) ([]Outbound, error) {
	if by != r.hostID {
		return nil, ErrNotHost
	}
	if r.phase != PhaseLobby {
		return nil, ErrInvalidPhaseTransition
	}
	if len(r.players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	out := []Outbound{broadcast(EventGameStarted, GameStartedData{RoomCode: r.code})}

	return append(out, r.nextTurn()...), nil
}

// SubmitAnswer records the answering player's choice and opens guessing.
func (r *Room) SubmitAnswer(by string, answer Choice) ([]Outbound, error) {
	if !answer.Valid() {
		return nil, ErrInvalidPayload
	}
	if r.phase != PhaseAwaitingAnswer {
		return nil, ErrInvalidPhaseTransition
	}
	if by != r.answererID {
		return nil, ErrNotAnsweringPlayer
	}

	r.answer = answer
	clear(r.guesses)
	r.guessesComplete = false
	r.phase = PhaseAwaitingGuesses

	return []Outbound{broadcast(EventStartGuessing, r.startGuessingData())}, nil
}

// SubmitGuess records or overwrites a guess. allGuessesSubmitted is emitted
// the first time every non-answering player has a guess in.
func (r *Room) SubmitGuess(by string, guess Choice) ([]Outbound, error) {
	if !guess.Valid() {
		return nil, ErrInvalidPayload
	}
	if r.phase != PhaseAwaitingGuesses {
		return nil, ErrInvalidPhaseTransition
	}
	if by == r.answererID {
		return nil, ErrAnswererCannotGuess
	}
	if !r.Has(by) {
		return nil, ErrPlayerNotFound
	}

	r.guesses[by] = guess

	return r.checkGuesses(), nil
}

func (r *Room) checkGuesses() []Outbound {
	if r.guessesComplete || len(r.guesses) != len(r.players)-1 {
		return nil
	}

	r.guessesComplete = true

	return []Outbound{broadcast(EventAllGuessesSubmitted, AllGuessesSubmittedData{RoomCode: r.code})}
}

// RevealResults scores the round and publishes every guess.
func (r *Room) RevealResults(by string) ([]Outbound, error) {
	if by != r.hostID {
		return nil, ErrNotHost
	}
	if r.phase != PhaseAwaitingGuesses {
		return nil, ErrInvalidPhaseTransition
	}
	if !r.guessesComplete {
		return nil, ErrGuessesIncomplete
	}

	answerer, _ := r.player(r.answererID)

	results := make([]GuessResult, 0, len(r.guesses))
	for _, p := range r.players {
		guess, ok := r.guesses[p.ID]
		if !ok {
			continue
		}

		correct := guess == r.answer
		if correct {
			r.scores[p.ID]++
		}

		results = append(results, GuessResult{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Guess:      guess,
			IsCorrect:  correct,
		})
	}

	clear(r.guesses)
	r.phase = PhaseRoundRevealed
	r.results = RoundResultsData{
		RoomCode:          r.code,
		CurrentPlayerName: answerer.Name,
		CorrectAnswerText: r.question.Option(r.answer),
		Results:           results,
	}

	return []Outbound{broadcast(EventRoundResults, r.results)}, nil
}

// StartNextRound begins another turn, or ends the game once every current
// player has answered.
func (r *Room) StartNextRound(by string) ([]Outbound, error) {
	if by != r.hostID {
		return nil, ErrNotHost
	}
	if r.phase != PhaseRoundRevealed {
		return nil, ErrInvalidPhaseTransition
	}

	return r.advance(), nil
}

// AutoAdvance is StartNextRound on behalf of the server. It only acts if the
// room is still showing the results of the given round.
func (r *Room) AutoAdvance(round int) ([]Outbound, bool) {
	if r.phase != PhaseRoundRevealed || r.round != round {
		return nil, false
	}

	return r.advance(), true
}

func (r *Room) advance() []Outbound {
	if r.everyoneAnswered() {
		return r.endGame()
	}

	return r.nextTurn()
}

func (r *Room) everyoneAnswered() bool {
	for _, p := range r.players {
		if _, ok := r.answered[p.ID]; !ok {
			return false
		}
	}
	return true
}

// RevealScoreboard publishes the final standings.
func (r *Room) RevealScoreboard(by string) ([]Outbound, error) {
	if by != r.hostID {
		return nil, ErrNotHost
	}
	if r.phase != PhaseGameOver {
		return nil, ErrInvalidPhaseTransition
	}

	return []Outbound{broadcast(EventScoreBoard, ScoreBoardData{FinalScores: r.Standings()})}, nil
}

// Standings ranks the current players by score.
func (r *Room) Standings() []Standing {
	scores := make([]Score, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, Score{PlayerID: p.ID, Name: p.Name, Score: r.scores[p.ID]})
	}
	return RankScores(scores)
}

func (r *Room) endGame() []Outbound {
	r.phase = PhaseGameOver
	r.answererID = ""
	clear(r.guesses)

	return []Outbound{broadcast(EventGameOver, GameOverData{RoomCode: r.code})}
}

func (r *Room) nextTurn() []Outbound {
	answerer := r.pickNextAnsweringPlayer()
	_, question := r.pool.Next(r.usedQuestions, r.opts.Intn)

	r.round++
	r.answererID = answerer.ID
	r.question = question
	r.answer = ""
	clear(r.guesses)
	r.guessesComplete = false
	r.phase = PhaseAwaitingAnswer

	return []Outbound{broadcast(EventNewTurn, r.newTurnData())}
}

// pickNextAnsweringPlayer draws uniformly from players who have not answered
// in the current rotation, starting a new rotation when none are left.
func (r *Room) pickNextAnsweringPlayer() Player {
	eligible := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		if _, ok := r.answered[p.ID]; !ok {
			eligible = append(eligible, p)
		}
	}

	if len(eligible) == 0 {
		clear(r.answered)
		return r.pickNextAnsweringPlayer()
	}

	chosen := eligible[r.opts.Intn(len(eligible))]
	r.answered[chosen.ID] = struct{}{}

	return chosen
}

func (r *Room) newTurnData() NewTurnData {
	answerer, _ := r.player(r.answererID)

	return NewTurnData{
		CurrentPlayerID:   answerer.ID,
		CurrentPlayerName: answerer.Name,
		Question:          r.question,
		RoomCode:          r.code,
	}
}

func (r *Room) startGuessingData() StartGuessingData {
	return StartGuessingData{
		RoomCode:        r.code,
		CurrentPlayerID: r.answererID,
		Question:        r.question,
	}
}
