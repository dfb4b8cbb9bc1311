// Package teamerr defines the typed business errors surfaced by the
// TeamCoin engine. Services return these (usually wrapped with context via
// fmt.Errorf and %w) and handlers translate them to stable API codes.
package teamerr

import "errors"

var (
	// ErrAlreadyMember is returned when a user who already belongs to a
	// level-1 team tries to create or join another one.
	ErrAlreadyMember = errors.New("user already belongs to a team")

	// ErrNotFound covers missing teams, users and transfer recipients.
	ErrNotFound = errors.New("not found")

	// ErrTeamFull is returned when a level-1 team is at capacity.
	ErrTeamFull = errors.New("team is full")

	// ErrInvalidCandidate is returned for self-votes and for candidates
	// who share no team with the voter.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrNoTeam is returned when a voter belongs to no team at all.
	ErrNoTeam = errors.New("user has no team")

	// ErrInsufficientFunds is returned when a sender's balance does not
	// cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer is returned when sender and receiver are the same.
	ErrSelfTransfer = errors.New("cannot transfer coins to yourself")

	// ErrValidation covers missing or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrConflictRetry is surfaced after a state-changing operation kept
	// losing write conflicts through the bounded transparent retries.
	// The caller may retry the whole operation.
	ErrConflictRetry = errors.New("conflicting concurrent update, retry")

	// ErrStorage is a fatal storage fault for the current request.
	ErrStorage = errors.New("storage failure")
)

// Code returns the stable API code for err. Unrecognized errors map to
// StorageFailure so no internal detail leaks to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyMember):
		return "AlreadyMember"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrTeamFull):
		return "TeamFull"
	case errors.Is(err, ErrInvalidCandidate):
		return "InvalidCandidate"
	case errors.Is(err, ErrNoTeam):
		return "NoTeam"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrSelfTransfer):
		return "SelfTransfer"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrConflictRetry):
		return "ConflictRetry"
	default:
		return "StorageFailure"
	}
}

// IsBusiness reports whether err is one of the recoverable business
// errors, as opposed to a storage fault.
func IsBusiness(err error) bool {
	return Code(err) != "StorageFailure"
}
