package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrStoreInconsistent = errors.New("more than one active snapshot")
	ErrPlanRejected      = errors.New("restock plan rejected")
	ErrNoDecision        = errors.New("no decision")
	ErrLockHeld          = errors.New("lock already held")
)
