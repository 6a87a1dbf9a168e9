package settlement

import "errors"

// Sentinel errors returned by the engine. API layers branch on these
// with errors.Is; wrapped variants carry leg numbers and context.
var (
	ErrInvalidVenue       = errors.New("venue does not exist")
	ErrUnauthorized       = errors.New("caller does not have required permissions")
	ErrUnauthorizedVenue  = errors.New("venue does not have required permissions")
	ErrUnknownInstruction = errors.New("instruction does not exist")
	ErrUnknownLeg         = errors.New("leg does not exist")
	ErrNoLegs             = errors.New("instruction has no legs")
	ErrInvalidLeg         = errors.New("invalid leg")

	ErrNoPendingAuth            = errors.New("no pending authorization for the instruction")
	ErrInstructionNotAuthorized = errors.New("instruction has not been authorized")
	ErrInstructionNotPending    = errors.New("instruction is not pending")
	ErrInstructionNotReady      = errors.New("instruction is missing authorizations")
	ErrInstructionNotDue        = errors.New("instruction is not due for execution")
	ErrLegNotPending            = errors.New("leg is not pending execution")

	ErrUnauthorizedSigner    = errors.New("signer is not authorized by the venue")
	ErrReceiptAlreadyClaimed = errors.New("receipt already claimed")
	ErrReceiptNotClaimed     = errors.New("receipt not claimed")
	ErrReceiptMismatch       = errors.New("receipt does not match leg")
	ErrInvalidSignature      = errors.New("receipt signature is invalid")

	// ErrCounterCorrupted signals the pending-authorization counter
	// would underflow, a fatal ledger inconsistency.
	ErrCounterCorrupted = errors.New("pending authorization counter corrupted")
)
