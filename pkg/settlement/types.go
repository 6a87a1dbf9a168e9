// Package settlement implements the settlement instruction lifecycle:
// venues originate multi-leg asset exchanges ("instructions"), every
// counterparty authorizes or rejects them, individual legs may be
// settled off-chain via signed receipts, and once all parties consent
// the legs transfer atomically through the custody gateway.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/primitives"
)

// InstructionStatus is the lifecycle state of an instruction.
type InstructionStatus string

const (
	InstructionUnknown  InstructionStatus = "UNKNOWN"
	InstructionPending  InstructionStatus = "PENDING"
	InstructionExecuted InstructionStatus = "EXECUTED"
	InstructionFailed   InstructionStatus = "FAILED"
	InstructionRejected InstructionStatus = "REJECTED"
)

// Terminal reports whether the status admits no further transitions.
func (s InstructionStatus) Terminal() bool {
	return s == InstructionExecuted || s == InstructionFailed || s == InstructionRejected
}

// LegState is the execution state of a single leg.
type LegState string

const (
	LegExecutionPending     LegState = "EXECUTION_PENDING"
	LegExecutionSuccessful  LegState = "EXECUTION_SUCCESSFUL"
	LegExecutionFailed      LegState = "EXECUTION_FAILED"
	LegExecutionToBeSkipped LegState = "EXECUTION_TO_BE_SKIPPED"
	LegExecutionSkipped     LegState = "EXECUTION_SKIPPED"
)

// LegStatus carries the leg state plus the receipt binding for the
// skipped states.
type LegStatus struct {
	State      LegState             `json:"state"`
	Signer     primitives.AccountID `json:"signer,omitempty"`
	ReceiptUID uint64               `json:"receipt_uid,omitempty"`
}

// AuthorizationStatus is the per-(instruction, counterparty) consent
// state.
type AuthorizationStatus string

const (
	AuthorizationUnknown    AuthorizationStatus = "UNKNOWN"
	AuthorizationPending    AuthorizationStatus = "PENDING"
	AuthorizationAuthorized AuthorizationStatus = "AUTHORIZED"
	AuthorizationRejected   AuthorizationStatus = "REJECTED"
)

// SettlementKind selects when an instruction becomes executable.
type SettlementKind string

const (
	// SettleOnAuthorization executes as soon as the last counterparty
	// authorizes.
	SettleOnAuthorization SettlementKind = "SETTLE_ON_AUTHORIZATION"
	// SettleOnDate waits for an explicit execution trigger at or after
	// the scheduled date.
	SettleOnDate SettlementKind = "SETTLE_ON_DATE"
)

// SettlementType pairs the kind with its scheduled date (SettleOnDate
// only).
type SettlementType struct {
	Kind SettlementKind `json:"kind"`
	Date time.Time      `json:"date,omitempty"`
}

// OnAuthorization is the immediate settlement type.
func OnAuthorization() SettlementType {
	return SettlementType{Kind: SettleOnAuthorization}
}

// OnDate schedules settlement at or after t.
func OnDate(t time.Time) SettlementType {
	return SettlementType{Kind: SettleOnDate, Date: t}
}

// LegInput describes one directed transfer when creating an
// instruction.
type LegInput struct {
	From   primitives.IdentityID `json:"from"`
	To     primitives.IdentityID `json:"to"`
	Asset  primitives.Ticker     `json:"asset"`
	Amount decimal.Decimal       `json:"amount"`
}

// Leg is a directed transfer within an instruction. All fields except
// Status are immutable after creation; Number is the 0-based position
// in submission order.
type Leg struct {
	Number uint64                `json:"number"`
	From   primitives.IdentityID `json:"from"`
	To     primitives.IdentityID `json:"to"`
	Asset  primitives.Ticker     `json:"asset"`
	Amount decimal.Decimal       `json:"amount"`
	Status LegStatus             `json:"status"`
}

// Instruction is a proposed multi-leg exchange awaiting authorization
// from all counterparties.
type Instruction struct {
	ID             uint64            `json:"id"`
	VenueID        uint64            `json:"venue_id"`
	Status         InstructionStatus `json:"status"`
	SettlementType SettlementType    `json:"settlement_type"`
	CreatedAt      time.Time         `json:"created_at"`
	ValidFrom      *time.Time        `json:"valid_from,omitempty"`
}

// Venue is an entity authorized to originate instructions.
type Venue struct {
	ID           uint64                `json:"id"`
	Creator      primitives.IdentityID `json:"creator"`
	Details      []byte                `json:"details,omitempty"`
	Instructions []uint64              `json:"instructions"`
}
