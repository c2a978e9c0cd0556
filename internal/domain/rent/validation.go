package rent

import (
	"math/big"
	"time"
)

// Default thresholds for new offers.
const (
	DefaultMinDuration   = time.Hour
	DefaultMinExpiryLead = time.Minute
)

// ValidateCreateInput checks the economic parameters of a new offer at time now.
func ValidateCreateInput(rate *big.Int, duration time.Duration, expiresAt, now time.Time, opts Options) error {
	const op = "create rent"
	if rate == nil || rate.Sign() <= 0 {
		return fail(op, KindInvalidParameters, "rate must be positive")
	}
	if duration <= opts.MinDuration {
		return fail(op, KindInvalidParameters, "duration %s must exceed %s", duration, opts.MinDuration)
	}
	if !expiresAt.After(now.Add(opts.MinExpiryLead)) {
		return fail(op, KindInvalidParameters, "expiry must be more than %s in the future", opts.MinExpiryLead)
	}
	return nil
}
