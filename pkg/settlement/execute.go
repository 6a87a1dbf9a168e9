package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/primitives"
)

// ExecuteInstruction is the public execution trigger for scheduled
// instructions. It requires every counterparty to have authorized and
// the valid-from bound and scheduled date (if any) to have passed.
// SettleOnAuthorization instructions normally execute from the last
// authorize call; this trigger also covers the case where their
// valid-from bound was still in the future at that point.
func (e *Engine) ExecuteInstruction(ctx context.Context, caller primitives.AccountID, instructionID uint64) error {
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
	if e.authsPending[instructionID] != 0 {
		return ErrInstructionNotReady
	}
	if !e.validFromReached(instruction) {
		return ErrInstructionNotDue
	}
	if instruction.SettlementType.Kind == SettleOnDate && e.clock().Before(instruction.SettlementType.Date) {
		return ErrInstructionNotDue
	}
	return e.executeLocked(ctx, did, instruction)
}

// executeLocked settles every leg of a fully authorized instruction
// atomically. On-chain legs transfer through the custody gateway in leg
// order; receipt-claimed legs are skipped. If any transfer fails, every
// applied transfer is reverted in reverse order, the failing leg is
// marked ExecutionFailed and the instruction ends Failed, so no partial
// execution is externally observable. Caller must hold the engine lock.
func (e *Engine) executeLocked(ctx context.Context, actor primitives.IdentityID, instruction *Instruction) error {
	legs := e.legs[instruction.ID]

	var applied []*Leg
	for _, leg := range legs {
		if leg.Status.State != LegExecutionPending {
			continue
		}
		if err := e.custody.Transfer(ctx, leg.From, leg.To, leg.Asset, leg.Amount, e.moduleIdentity); err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				undo := applied[i]
				if rerr := e.custody.RevertTransfer(ctx, undo.From, undo.To, undo.Asset, undo.Amount, e.moduleIdentity); rerr != nil {
					slog.Error("transfer revert failed during execution rollback",
						"instruction", instruction.ID, "leg", undo.Number, "error", rerr)
				}
			}
			leg.Status = LegStatus{State: LegExecutionFailed}
			instruction.Status = InstructionFailed

			e.emit(ctx, actor, audit.ActionInstructionFailed, instructionResource(instruction.ID), map[string]interface{}{
				"instruction_id": instruction.ID,
				"failed_leg":     leg.Number,
				"reason":         err.Error(),
			})
			return fmt.Errorf("settle leg %d: %w", leg.Number, err)
		}
		applied = append(applied, leg)
	}

	// Point of no return: all transfers succeeded. Commit leg states
	// and the terminal status together.
	for _, leg := range applied {
		leg.Status = LegStatus{State: LegExecutionSuccessful}
	}
	for _, leg := range legs {
		if leg.Status.State == LegExecutionToBeSkipped {
			leg.Status.State = LegExecutionSkipped
		}
	}
	instruction.Status = InstructionExecuted

	e.emit(ctx, actor, audit.ActionInstructionExecuted, instructionResource(instruction.ID), map[string]interface{}{
		"instruction_id": instruction.ID,
		"legs":           len(legs),
	})
	return nil
}
