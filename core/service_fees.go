package core

import (
	"context"
	"fmt"
	"time"
)

// SetFee replaces the global fee percentage applied to subsequent
// purchases. Only the administrator captured at construction may call
// it; committed purchase records keep the split they settled with.
func (s *Service) SetFee(ctx context.Context, in SetFeeInput) (percent uint64, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":  in.Caller,
		"percent": in.Percent,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_fee", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := normalizePrincipal(in.Caller)
	if caller == "" {
		err = errInvalidInput("core: caller is required")
		return 0, err
	}
	if caller != s.admin {
		err = errUnauthorizedOwner("core: only the marketplace administrator may change the fee")
		return 0, err
	}
	if in.Percent > MaxFeePercent {
		err = errInvalidPrice(fmt.Sprintf("core: fee percentage %d exceeds %d", in.Percent, MaxFeePercent))
		return 0, err
	}

	percent = in.Percent
	height := s.clock.Height()
	changes := ChangeSet{
		FeePercent: &percent,
		Events: []MarketEvent{s.newEvent(EventFeeUpdated, 0, caller, height, map[string]any{
			"percent": percent,
		})},
	}
	if err = s.ledger.Commit(ctx, changes); err != nil {
		err = s.mapError(err)
		return 0, err
	}
	return percent, nil
}
