package domain

import "errors"

var (
	ErrEntropyUnavailable = errors.New("secure random source unavailable")
	ErrInvalidBound       = errors.New("maxExclusive must be in (0, 2^32]")
	ErrInsufficientItems  = errors.New("at least 2 items are required to spin")
	ErrAlreadySpinning    = errors.New("wheel is already spinning")
	ErrNotSpinning        = errors.New("wheel is not spinning")
	ErrSpinMismatch       = errors.New("spin token does not match the pending spin")
	ErrInvalidConfig      = errors.New("invalid spin configuration")
	ErrInvalidItems       = errors.New("invalid item list")
	ErrWheelNotFound      = errors.New("wheel not found")
	ErrPresetNotFound     = errors.New("preset not found")
	ErrUpstreamLLM        = errors.New("upstream LLM failure")
	ErrInvalidLLMJSON     = errors.New("LLM returned invalid JSON after retry")
)
