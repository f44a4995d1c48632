package game

// Error is an operation failure with a stable identifier that goes to
// the client verbatim in the {ok:false, error} response shape.
type Error struct {
	code string
}

func (e *Error) Error() string { return e.code }

// NewError mints an error with the given stable identifier. Used by
// the transport layer for codes that never originate inside a room
// (invalid_json, body_too_large).
func NewError(code string) *Error {
	return &Error{code}
}

// Code returns the stable identifier for err, or "internal_error" for
// anything that is not a game error.
func Code(err error) string {
	if ge, ok := err.(*Error); ok {
		return ge.code
	}
	return "internal_error"
}

// Validation errors.
var (
	ErrInvalidSize                = &Error{"invalid_size"}
	ErrInvalidDrawTimeoutSeconds  = &Error{"invalid_draw_timeout_seconds"}
	ErrInvalidTooth               = &Error{"invalid_tooth"}
	ErrInvalidToothCountPerJaw    = &Error{"invalid_tooth_count_per_jaw"}
	ErrInvalidCardCount           = &Error{"invalid_card_count"}
	ErrInvalidIndex               = &Error{"invalid_index"}
	ErrInvalidNumber              = &Error{"invalid_number"}
)

// Authorization errors.
var (
	ErrHostOnly    = &Error{"host_only"}
	ErrNotInRoom   = &Error{"not_in_room"}
	ErrNotYourTurn = &Error{"not_your_turn"}
)

// State errors.
var (
	ErrNotPlaying          = &Error{"not_playing"}
	ErrRoomNotJoinable     = &Error{"room_not_joinable"}
	ErrRoomFull            = &Error{"room_full"}
	ErrNeedTwoPlayers      = &Error{"need_two_players"}
	ErrNoPlayers           = &Error{"no_players"}
	ErrNumberAlreadyCalled = &Error{"number_already_called"}
	ErrAlreadySelected     = &Error{"already_selected"}
	ErrAlreadyMatched      = &Error{"already_matched"}
	ErrAlreadyRevealed     = &Error{"already_revealed"}
	ErrResolving           = &Error{"resolving"}
	ErrOccupied            = &Error{"occupied"}
	ErrPlayerNotReady      = &Error{"player_not_ready"}
)

// Not-found and internal errors.
var (
	ErrRoomNotFound      = &Error{"room_not_found"}
	ErrRoomCodeCollision = &Error{"room_code_collision"}
)
