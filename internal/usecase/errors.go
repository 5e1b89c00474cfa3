package usecase

import "errors"

// Error kinds of the decision engine. Calculation failures abort the current
// cycle with no side effects; execution failures leave the state machine at
// its last confirmed value.
var (
	// ErrInsufficientHistory means the candle history is shorter than an
	// indicator window. No value is computed on a short window.
	ErrInsufficientHistory = errors.New("insufficient candle history")

	// ErrInvalidRiskParameters means risk sizing produced a degenerate or
	// exchange-non-compliant order plan.
	ErrInvalidRiskParameters = errors.New("invalid risk parameters")

	// ErrExecutionFailed means the exchange rejected the order or retries
	// were exhausted.
	ErrExecutionFailed = errors.New("order execution failed")

	// ErrConcurrentModification means a symbol's exclusive section could not
	// be acquired within the bounded wait.
	ErrConcurrentModification = errors.New("symbol busy")

	// ErrCircuitBreakerTripped means auto-trading is force-disabled after
	// repeated losses.
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")

	// ErrAutoTradingDisabled means the enable flag is off; signals are
	// still computed and logged but not executed.
	ErrAutoTradingDisabled = errors.New("auto trading disabled")

	// ErrOutsideActiveHours means the current UTC hour is outside every
	// configured trading window.
	ErrOutsideActiveHours = errors.New("outside active trading hours")

	// ErrPositionExists means an open request was made for a symbol that
	// already has an open position.
	ErrPositionExists = errors.New("position already open")

	// ErrNoPosition means a close request was made for a symbol with no
	// open position.
	ErrNoPosition = errors.New("no open position")
)
