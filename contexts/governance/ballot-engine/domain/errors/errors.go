package errors

import "errors"

var (
	ErrLengthMismatch        = errors.New("input sequences differ in length")
	ErrInvalidWindow         = errors.New("invalid session window")
	ErrWindowAlreadyOpen     = errors.New("session window is already open")
	ErrSessionNotOpen        = errors.New("voting session is not open")
	ErrNotAVoter             = errors.New("caller is not a registered voter")
	ErrNotAuthorizedForVoter = errors.New("caller is not authorized for voter")
	ErrInvalidDelegate       = errors.New("invalid delegate identity")
	ErrResolutionOutOfRange  = errors.New("resolution id out of range")
	ErrProposalOutOfRange    = errors.New("proposal id out of range")
	ErrAlreadyVoted          = errors.New("voter already voted on resolution")
	ErrTallyOverflow         = errors.New("proposal tally would overflow")
	ErrUnauthorized          = errors.New("caller is not an authorized operator")
	ErrVoterNotFound         = errors.New("voter not found")
	ErrConflict              = errors.New("ballot state conflict")
)
