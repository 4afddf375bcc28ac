// Package domain classifies block-explorer source verification results.
package domain

import (
	"context"
	"errors"
)

var (
	ErrNoSource       = errors.New("no verification source available")
	ErrInvalidAddress = errors.New("invalid address")
)

// Status tags an Outcome.
type Status string

const (
	StatusVerified        Status = "verified"
	StatusAlreadyVerified Status = "already_verified"
	StatusSkipped         Status = "skipped"
	StatusFailed          Status = "failed"
)

// Outcome is the result of one verification attempt. Reason is set for
// Failed and Skipped.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Verified() Outcome             { return Outcome{Status: StatusVerified} }
func AlreadyVerified() Outcome      { return Outcome{Status: StatusAlreadyVerified} }
func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }
func Failed(reason string) Outcome  { return Outcome{Status: StatusFailed, Reason: reason} }

func (o Outcome) IsFailed() bool   { return o.Status == StatusFailed }
func (o Outcome) IsVerified() bool { return o.Status == StatusVerified || o.Status == StatusAlreadyVerified }

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Status)
	}
	return string(o.Status) + ": " + o.Reason
}

// Request is a single source-code submission.
type Request struct {
	Address         string
	ChainID         int64
	ContractName    string // fully qualified, "contracts/Exchange.sol:Exchange"
	CompilerVersion string // explorer form, "v0.8.4+commit.c7e474f2"
	StandardJSON    []byte
	ConstructorArgs string // ABI-encoded, hex without 0x
	Args            []any  // the values ConstructorArgs was encoded from
}

// Explorer submits source code for verification. A nil error means the
// explorer accepted and verified the source.
type Explorer interface {
	Verify(ctx context.Context, req Request) error
}

// Sources assembles a Request for a deployed contract.
type Sources interface {
	Prepare(ctx context.Context, address string, args []any) (*Request, error)
}
