package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/primitives"
)

// AuthorizeInstruction records the caller's consent. For every leg the
// caller pays, a custody allowance is locked in favor of the module
// identity before the consent is committed: the lock attempts run as an
// explicit two-phase apply, and any failure unwinds the applied subset
// in reverse order and aborts the whole call. When the last
// counterparty authorizes a SettleOnAuthorization instruction, it
// executes immediately.
func (e *Engine) AuthorizeInstruction(ctx context.Context, caller primitives.AccountID, instructionID uint64) error {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve caller: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instruction, ok := e.instructions[instructionID]
	if !ok {
		return ErrUnknownInstruction
	}
	if instruction.Status != InstructionPending {
		return ErrInstructionNotPending
	}
	if e.userAuth(did, instructionID) != AuthorizationPending {
		return ErrNoPendingAuth
	}
	pending := e.authsPending[instructionID]
	if pending == 0 {
		// A Pending record with a zero counter means the ledger is
		// inconsistent; decrementing would wrap around.
		return ErrCounterCorrupted
	}

	// Phase one: lock every leg the caller pays. Phase two only runs
	// if all locks succeed.
	var applied []*Leg
	for _, leg := range e.legs[instructionID] {
		if leg.From != did || leg.Status.State != LegExecutionPending {
			continue
		}
		if err := e.custody.IncreaseAllowance(ctx, did, leg.Asset, e.moduleIdentity, leg.Amount); err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				undo := applied[i]
				if derr := e.custody.DecreaseAllowance(ctx, did, undo.Asset, e.moduleIdentity, undo.Amount); derr != nil {
					slog.Error("custody unlock failed during rollback",
						"instruction", instructionID, "leg", undo.Number, "error", derr)
				}
			}
			return fmt.Errorf("lock leg %d: %w", leg.Number, err)
		}
		applied = append(applied, leg)
	}

	e.setAuth(did, instructionID, AuthorizationAuthorized)
	e.authsPending[instructionID] = pending - 1

	e.emit(ctx, did, audit.ActionInstructionAuthorized, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
		"auths_pending":  pending - 1,
		"legs_locked":    len(applied),
	})

	if pending-1 == 0 && instruction.SettlementType.Kind == SettleOnAuthorization && e.validFromReached(instruction) {
		if err := e.executeLocked(ctx, did, instruction); err != nil {
			return fmt.Errorf("execute instruction %d: %w", instructionID, err)
		}
	}
	return nil
}

// UnauthorizeInstruction withdraws a previously given consent and
// releases everything the authorize acquired: claimed receipts are
// unclaimed and custody locks are released. Failed instructions accept
// unauthorize too, so a failed execution never strands locked funds.
// Once any of the caller's legs has committed, the call fails without
// mutating anything.
func (e *Engine) UnauthorizeInstruction(ctx context.Context, caller primitives.AccountID, instructionID uint64) error {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve caller: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instruction, ok := e.instructions[instructionID]
	if !ok {
		return ErrUnknownInstruction
	}
	if instruction.Status != InstructionPending && instruction.Status != InstructionFailed {
		return ErrInstructionNotPending
	}
	if e.userAuth(did, instructionID) != AuthorizationAuthorized {
		return ErrInstructionNotAuthorized
	}

	// Check-then-act: refuse before any mutation if a leg committed.
	for _, leg := range e.legs[instructionID] {
		if leg.From != did {
			continue
		}
		if leg.Status.State == LegExecutionSuccessful || leg.Status.State == LegExecutionSkipped {
			return ErrLegNotPending
		}
	}

	if err := e.releaseLegsLocked(ctx, did, instructionID); err != nil {
		return err
	}

	// The mirror entry is removed rather than reset; the caller-side
	// view returns to Pending.
	if e.userAuths[did] == nil {
		e.userAuths[did] = make(map[uint64]AuthorizationStatus)
	}
	e.userAuths[did][instructionID] = AuthorizationPending
	delete(e.authsReceived[instructionID], did)
	e.authsPending[instructionID]++

	e.emit(ctx, did, audit.ActionInstructionUnauthorized, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
		"auths_pending":  e.authsPending[instructionID],
	})
	return nil
}

// RejectInstruction marks the instruction Rejected, a terminal status.
// Any counterparty with a Pending or Authorized record may reject. All
// custody locks held for the instruction are released and claimed
// receipts are freed, so a rejection never strands locked funds.
func (e *Engine) RejectInstruction(ctx context.Context, caller primitives.AccountID, instructionID uint64) error {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve caller: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instruction, ok := e.instructions[instructionID]
	if !ok {
		return ErrUnknownInstruction
	}
	if instruction.Status != InstructionPending {
		return ErrInstructionNotPending
	}
	status := e.userAuth(did, instructionID)
	if status != AuthorizationPending && status != AuthorizationAuthorized {
		return ErrNoPendingAuth
	}

	// Release every counterparty's locks, not only the rejecter's.
	// While the instruction is pending no leg can be in a committed
	// state, so each leg is pending or to-be-skipped.
	for _, leg := range e.legs[instructionID] {
		switch leg.Status.State {
		case LegExecutionToBeSkipped:
			e.markReceipt(leg.Status.Signer, leg.Status.ReceiptUID, false)
			signer, uid := leg.Status.Signer, leg.Status.ReceiptUID
			leg.Status = LegStatus{State: LegExecutionPending}
			e.emit(ctx, did, audit.ActionReceiptUnclaimed, instructionResource(instructionID), map[string]interface{}{
				"instruction_id": instructionID,
				"leg":            leg.Number,
				"signer":         string(signer),
				"receipt_uid":    uid,
			})
		case LegExecutionPending:
			if e.userAuth(leg.From, instructionID) != AuthorizationAuthorized {
				continue
			}
			if derr := e.custody.DecreaseAllowance(ctx, leg.From, leg.Asset, e.moduleIdentity, leg.Amount); derr != nil {
				slog.Error("custody unlock failed during rejection",
					"instruction", instructionID, "leg", leg.Number, "error", derr)
			}
		}
	}

	e.setAuth(did, instructionID, AuthorizationRejected)
	instruction.Status = InstructionRejected

	e.emit(ctx, did, audit.ActionInstructionRejected, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
	})
	return nil
}

// releaseLegsLocked undoes the caller's per-leg acquisitions: claimed
// receipts become unused and pending/failed legs give their custody
// lock back. Caller must hold the engine lock and have verified no leg
// already committed.
func (e *Engine) releaseLegsLocked(ctx context.Context, did primitives.IdentityID, instructionID uint64) error {
	for _, leg := range e.legs[instructionID] {
		if leg.From != did {
			continue
		}
		switch leg.Status.State {
		case LegExecutionToBeSkipped:
			e.markReceipt(leg.Status.Signer, leg.Status.ReceiptUID, false)
			signer, uid := leg.Status.Signer, leg.Status.ReceiptUID
			leg.Status = LegStatus{State: LegExecutionPending}
			e.emit(ctx, did, audit.ActionReceiptUnclaimed, instructionResource(instructionID), map[string]interface{}{
				"instruction_id": instructionID,
				"leg":            leg.Number,
				"signer":         string(signer),
				"receipt_uid":    uid,
			})
		case LegExecutionPending, LegExecutionFailed:
			if err := e.custody.DecreaseAllowance(ctx, did, leg.Asset, e.moduleIdentity, leg.Amount); err != nil {
				return fmt.Errorf("unlock leg %d: %w", leg.Number, err)
			}
		}
	}
	return nil
}

func (e *Engine) validFromReached(instruction *Instruction) bool {
	return instruction.ValidFrom == nil || !e.clock().Before(*instruction.ValidFrom)
}
