package settlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvenue/settled/pkg/settlement"
)

// receiptFor builds a signed receipt matching one of the world's legs.
func (w *world) receiptFor(uid uint64, in settlement.LegInput) (settlement.Receipt, []byte) {
	r := settlement.Receipt{
		UID:    uid,
		From:   in.From,
		To:     in.To,
		Asset:  in.Asset,
		Amount: in.Amount,
		Signer: w.signerAcct,
	}
	return r, r.Sign(w.signerKey)
}

func TestClaimReceiptReleasesLock(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	instructionID := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	require.True(t, w.bank.Allowance(w.alice, tick, w.engine.ModuleIdentity()).Equal(amt(100)))

	receipt, sig := w.receiptFor(1, payerLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))

	legs, err := w.engine.InstructionLegs(instructionID)
	require.NoError(t, err)
	assert.Equal(t, settlement.LegExecutionToBeSkipped, legs[0].Status.State)
	assert.Equal(t, w.signerAcct, legs[0].Status.Signer)
	assert.Equal(t, uint64(1), legs[0].Status.ReceiptUID)

	assert.True(t, w.engine.ReceiptUsed(w.signerAcct, 1))
	assert.True(t, w.bank.Allowance(w.alice, tick, w.engine.ModuleIdentity()).IsZero())
}

func TestClaimReceiptUnauthorizedPayerHoldsNoLock(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	bobLeg := leg(w.bob, w.eve, 10)
	instructionID := w.instruction(t, venueID, leg(w.alice, w.bob, 100), bobLeg)

	// alice claims bob's leg; bob never authorized, so there is no lock
	// to release.
	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	receipt, sig := w.receiptFor(7, bobLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 1, receipt, sig))

	assert.True(t, w.bank.Allowance(w.bob, tick, w.engine.ModuleIdentity()).IsZero())
}

func TestClaimReceiptRejectsReplay(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	first := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))
	second := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, first))
	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, second))

	receipt, sig := w.receiptFor(1, payerLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, first, 0, receipt, sig))

	// Same (signer, uid) pair on a different instruction.
	err := w.engine.ClaimReceipt(w.ctx, w.aliceAcct, second, 0, receipt, sig)
	require.ErrorIs(t, err, settlement.ErrReceiptAlreadyClaimed)
}

func TestClaimReceiptFailureModes(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	instructionID := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))
	receipt, sig := w.receiptFor(1, payerLeg)

	// Caller has not authorized yet.
	err := w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig)
	require.ErrorIs(t, err, settlement.ErrInstructionNotAuthorized)

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))

	err = w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 9, receipt, sig)
	require.ErrorIs(t, err, settlement.ErrUnknownLeg)

	unknownSigner := receipt
	unknownSigner.Signer = w.bobAcct
	err = w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, unknownSigner, sig)
	require.ErrorIs(t, err, settlement.ErrUnauthorizedSigner)

	wrongAmount := receipt
	wrongAmount.Amount = amt(99)
	err = w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, wrongAmount, wrongAmount.Sign(w.signerKey))
	require.ErrorIs(t, err, settlement.ErrReceiptMismatch)

	// Signature over different bytes than the presented receipt.
	err = w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, wrongAmount.Sign(w.signerKey))
	require.ErrorIs(t, err, settlement.ErrInvalidSignature)

	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))
	fresh, freshSig := w.receiptFor(2, payerLeg)
	err = w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, fresh, freshSig)
	require.ErrorIs(t, err, settlement.ErrLegNotPending)
}

func TestUnclaimReceiptRestoresLock(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	instructionID := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	receipt, sig := w.receiptFor(1, payerLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))

	require.NoError(t, w.engine.UnclaimReceipt(w.ctx, w.aliceAcct, instructionID, 0))

	legs, err := w.engine.InstructionLegs(instructionID)
	require.NoError(t, err)
	assert.Equal(t, settlement.LegExecutionPending, legs[0].Status.State)
	assert.False(t, w.engine.ReceiptUsed(w.signerAcct, 1))
	assert.True(t, w.bank.Allowance(w.alice, tick, w.engine.ModuleIdentity()).Equal(amt(100)))

	// The freed uid can be claimed again.
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))
}

func TestUnclaimReceiptRequiresClaim(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	instructionID := w.instruction(t, venueID, leg(w.alice, w.bob, 100), leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	err := w.engine.UnclaimReceipt(w.ctx, w.aliceAcct, instructionID, 0)
	require.ErrorIs(t, err, settlement.ErrReceiptNotClaimed)
}

func TestUnauthorizeFreesClaimedReceipts(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	instructionID := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	receipt, sig := w.receiptFor(1, payerLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))

	require.NoError(t, w.engine.UnauthorizeInstruction(w.ctx, w.aliceAcct, instructionID))

	legs, err := w.engine.InstructionLegs(instructionID)
	require.NoError(t, err)
	assert.Equal(t, settlement.LegExecutionPending, legs[0].Status.State)
	assert.False(t, w.engine.ReceiptUsed(w.signerAcct, 1))
	assert.True(t, w.bank.Allowance(w.alice, tick, w.engine.ModuleIdentity()).IsZero())
}

func TestExecutionSkipsClaimedLegs(t *testing.T) {
	w := newWorld(t)
	venueID := w.venue(t)
	payerLeg := leg(w.alice, w.bob, 100)
	instructionID := w.instruction(t, venueID, payerLeg, leg(w.bob, w.eve, 10))

	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.aliceAcct, instructionID))
	receipt, sig := w.receiptFor(1, payerLeg)
	require.NoError(t, w.engine.ClaimReceipt(w.ctx, w.aliceAcct, instructionID, 0, receipt, sig))

	// eve's authorization completes the instruction (she receives leg 1);
	// only the on-chain leg moves funds.
	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.bobAcct, instructionID))
	require.NoError(t, w.engine.AuthorizeInstruction(w.ctx, w.eveAcct, instructionID))

	instruction, err := w.engine.InstructionDetails(instructionID)
	require.NoError(t, err)
	assert.Equal(t, settlement.InstructionExecuted, instruction.Status)

	legs, err := w.engine.InstructionLegs(instructionID)
	require.NoError(t, err)
	assert.Equal(t, settlement.LegExecutionSkipped, legs[0].Status.State)
	assert.Equal(t, w.signerAcct, legs[0].Status.Signer)
	assert.Equal(t, settlement.LegExecutionSuccessful, legs[1].Status.State)

	assert.True(t, w.bank.Balance(w.alice, tick).Equal(amt(1000)))
	assert.True(t, w.bank.Balance(w.bob, tick).Equal(amt(990)))
	assert.True(t, w.bank.Balance(w.eve, tick).Equal(amt(10)))

	// The uid stays burned after execution.
	assert.True(t, w.engine.ReceiptUsed(w.signerAcct, 1))
}
