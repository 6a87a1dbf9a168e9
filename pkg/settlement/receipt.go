package settlement

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/primitives"
)

// Receipt is an off-chain attestation that a leg settled outside the
// chain. UID is anything unique per signer.
type Receipt struct {
	UID    uint64                `json:"uid"`
	From   primitives.IdentityID `json:"from"`
	To     primitives.IdentityID `json:"to"`
	Asset  primitives.Ticker     `json:"asset"`
	Amount decimal.Decimal       `json:"amount"`
	Signer primitives.AccountID  `json:"signer"`
}

// SigningPayload returns the canonical bytes the signer attests to.
// The amount is rendered as a string so the payload is stable across
// decimal representations.
func (r Receipt) SigningPayload() []byte {
	payload := struct {
		UID    uint64 `json:"uid"`
		From   string `json:"from"`
		To     string `json:"to"`
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
		Signer string `json:"signer"`
	}{r.UID, string(r.From), string(r.To), string(r.Asset), r.Amount.String(), string(r.Signer)}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshalling a flat struct of strings cannot fail.
		panic(err)
	}
	return raw
}

// Sign produces the signer's ed25519 signature over the payload.
// Intended for venues and tests; verification happens in ClaimReceipt.
func (r Receipt) Sign(priv ed25519.PrivateKey) []byte {
	return ed25519.Sign(priv, r.SigningPayload())
}

// verifySignature checks the receipt signature against the signer's
// account key.
func verifySignature(r Receipt, signature []byte) error {
	pub, err := r.Signer.Key()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ed25519.Verify(pub, r.SigningPayload(), signature) {
		return ErrInvalidSignature
	}
	return nil
}

// ClaimReceipt marks a leg as settled off-chain. The caller must have
// authorized the instruction; the signer must be registered with the
// instruction's venue; the (signer, uid) pair must be unused; the
// receipt must describe the leg exactly and carry a valid ed25519
// signature. The leg's custody lock is released since settlement is
// attested off-chain instead.
func (e *Engine) ClaimReceipt(ctx context.Context, caller primitives.AccountID, instructionID, legNumber uint64, receipt Receipt, signature []byte) error {
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
	if e.userAuth(did, instructionID) != AuthorizationAuthorized {
		return ErrInstructionNotAuthorized
	}
	legs := e.legs[instructionID]
	if legNumber >= uint64(len(legs)) {
		return ErrUnknownLeg
	}
	leg := legs[legNumber]
	if leg.Status.State != LegExecutionPending {
		return ErrLegNotPending
	}
	if !e.venueSigners[instruction.VenueID][receipt.Signer] {
		return ErrUnauthorizedSigner
	}
	if e.receiptUsed(receipt.Signer, receipt.UID) {
		return ErrReceiptAlreadyClaimed
	}
	if receipt.From != leg.From || receipt.To != leg.To || receipt.Asset != leg.Asset || !receipt.Amount.Equal(leg.Amount) {
		return ErrReceiptMismatch
	}
	if err := verifySignature(receipt, signature); err != nil {
		return err
	}

	// The payer's lock exists only once they authorized; release it
	// before committing the claim so funds never stay locked for a leg
	// that settles off-chain.
	if e.userAuth(leg.From, instructionID) == AuthorizationAuthorized {
		if err := e.custody.DecreaseAllowance(ctx, leg.From, leg.Asset, e.moduleIdentity, leg.Amount); err != nil {
			return fmt.Errorf("unlock leg %d: %w", leg.Number, err)
		}
	}

	e.markReceipt(receipt.Signer, receipt.UID, true)
	leg.Status = LegStatus{State: LegExecutionToBeSkipped, Signer: receipt.Signer, ReceiptUID: receipt.UID}

	e.emit(ctx, did, audit.ActionReceiptClaimed, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
		"leg":            legNumber,
		"signer":         string(receipt.Signer),
		"receipt_uid":    receipt.UID,
	})
	return nil
}

// UnclaimReceipt reverses ClaimReceipt: the receipt becomes unused, the
// leg returns to pending and the custody lock is re-acquired.
func (e *Engine) UnclaimReceipt(ctx context.Context, caller primitives.AccountID, instructionID, legNumber uint64) error {
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
	if e.userAuth(did, instructionID) != AuthorizationAuthorized {
		return ErrInstructionNotAuthorized
	}
	legs := e.legs[instructionID]
	if legNumber >= uint64(len(legs)) {
		return ErrUnknownLeg
	}
	leg := legs[legNumber]
	if leg.Status.State != LegExecutionToBeSkipped {
		return ErrReceiptNotClaimed
	}

	// Re-acquire the lock first; if that fails the claim stays as-is.
	if e.userAuth(leg.From, instructionID) == AuthorizationAuthorized {
		if err := e.custody.IncreaseAllowance(ctx, leg.From, leg.Asset, e.moduleIdentity, leg.Amount); err != nil {
			return fmt.Errorf("relock leg %d: %w", leg.Number, err)
		}
	}

	signer, uid := leg.Status.Signer, leg.Status.ReceiptUID
	e.markReceipt(signer, uid, false)
	leg.Status = LegStatus{State: LegExecutionPending}

	e.emit(ctx, did, audit.ActionReceiptUnclaimed, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
		"leg":            legNumber,
		"signer":         string(signer),
		"receipt_uid":    uid,
	})
	return nil
}
