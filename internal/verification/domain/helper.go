package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pendergraft/deployctl/internal/validation"
)

const alreadyVerifiedMarker = "already verified"

// Helper submits a deployed contract to an explorer and classifies the result.
// It never returns an error: explorer failures become Failed outcomes and
// "already verified" responses count as success.
type Helper struct {
	explorer Explorer
	sources  Sources
	logger   *slog.Logger
}

// NewHelper creates a verification helper.
func NewHelper(explorer Explorer, sources Sources, logger *slog.Logger) *Helper {
	return &Helper{
		explorer: explorer,
		sources:  sources,
		logger:   logger,
	}
}

// Verify registers the source of the contract at address, built with args.
func (h *Helper) Verify(ctx context.Context, address string, args []any) Outcome {
	h.logger.Info("Verifying the contract, please wait...", "address", address)

	if err := validation.ValidateAddress(address); err != nil {
		return h.fail(fmt.Errorf("%w: %v", ErrInvalidAddress, err))
	}

	req, err := h.sources.Prepare(ctx, address, args)
	if err != nil {
		return h.fail(fmt.Errorf("preparing verification: %w", err))
	}

	if err := h.explorer.Verify(ctx, *req); err != nil {
		if IsAlreadyVerified(err) {
			h.logger.Info("Already Verified", "address", address)
			return AlreadyVerified()
		}
		return h.fail(err)
	}

	h.logger.Info("contract verified", "address", address, "contract", req.ContractName)
	return Verified()
}

func (h *Helper) fail(err error) Outcome {
	h.logger.Error("verification failed", "error", err)
	return Failed(err.Error())
}

// IsAlreadyVerified reports whether err says the source is already verified,
// in any letter case.
func IsAlreadyVerified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), alreadyVerifiedMarker)
}
