package domain

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deployedAddress = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"

// mockExplorer records submissions and returns a canned error
type mockExplorer struct {
	err   error
	calls []Request
}

func (m *mockExplorer) Verify(ctx context.Context, req Request) error {
	m.calls = append(m.calls, req)
	return m.err
}

type mockSources struct {
	err error
}

func (m *mockSources) Prepare(ctx context.Context, address string, args []any) (*Request, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &Request{
		Address:      address,
		ContractName: "contracts/Exchange.sol:Exchange",
		Args:         args,
	}, nil
}

func newTestHelper(explorer Explorer, sources Sources) (*Helper, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewHelper(explorer, sources, logger), &buf
}

func TestHelper_Verify(t *testing.T) {
	args := []any{"0x5FbDB2315678afecb367f032d93F642f64180aa3"}

	tests := []struct {
		name      string
		err       error
		want      Status
		wantLog   string
		wantInErr string
	}{
		{name: "success", err: nil, want: StatusVerified, wantLog: "Verifying the contract, please wait..."},
		{name: "already verified upper", err: errors.New("Contract source code ALREADY VERIFIED"), want: StatusAlreadyVerified, wantLog: "Already Verified"},
		{name: "already verified lower", err: errors.New("already verified"), want: StatusAlreadyVerified, wantLog: "Already Verified"},
		{name: "already verified mixed", err: errors.New("Reason: Already Verified"), want: StatusAlreadyVerified, wantLog: "Already Verified"},
		{name: "other error", err: errors.New("Other error"), want: StatusFailed, wantLog: "Other error", wantInErr: "Other error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explorer := &mockExplorer{err: tt.err}
			h, logs := newTestHelper(explorer, &mockSources{})

			outcome := h.Verify(context.Background(), deployedAddress, args)

			assert.Equal(t, tt.want, outcome.Status)
			assert.Contains(t, logs.String(), tt.wantLog)
			if tt.wantInErr != "" {
				assert.Contains(t, outcome.Reason, tt.wantInErr)
				assert.True(t, outcome.IsFailed())
			}

			// exactly one submission, never retried
			require.Len(t, explorer.calls, 1)
			assert.Equal(t, deployedAddress, explorer.calls[0].Address)
			assert.Equal(t, args, explorer.calls[0].Args)
		})
	}
}

func TestHelper_VerifyPrepareFailure(t *testing.T) {
	explorer := &mockExplorer{}
	h, _ := newTestHelper(explorer, &mockSources{err: ErrNoSource})

	outcome := h.Verify(context.Background(), deployedAddress, nil)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Empty(t, explorer.calls)
}

func TestHelper_VerifyInvalidAddress(t *testing.T) {
	explorer := &mockExplorer{}
	h, _ := newTestHelper(explorer, &mockSources{})

	outcome := h.Verify(context.Background(), "0x1234", nil)

	assert.True(t, outcome.IsFailed())
	assert.Empty(t, explorer.calls)
}

func TestIsAlreadyVerified(t *testing.T) {
	assert.True(t, IsAlreadyVerified(errors.New("ALREADY VERIFIED")))
	assert.True(t, IsAlreadyVerified(errors.New("contract already verified")))
	assert.False(t, IsAlreadyVerified(errors.New("Other error")))
	assert.False(t, IsAlreadyVerified(nil))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "verified", Verified().String())
	assert.Equal(t, "failed: boom", Failed("boom").String())
	assert.True(t, AlreadyVerified().IsVerified())
	assert.False(t, Skipped("development chain").IsVerified())
	assert.False(t, Skipped("development chain").IsFailed())
}
