package services

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/database"
	"gorm.io/gorm"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
	ErrStore      = database.ErrStore
)

var (
	ErrRegisterClosed   = fmt.Errorf("%w: cash register is closed", ErrConflict)
	ErrRegisterOpen     = fmt.Errorf("%w: cash register is already open", ErrConflict)
	ErrTableOccupied    = fmt.Errorf("%w: table is occupied", ErrConflict)
	ErrAlreadyClaimed   = fmt.Errorf("%w: order already claimed by another driver", ErrConflict)
	ErrOrderNotFound    = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("%w: order item not found", ErrNotFound)
	ErrNoOpenOrder      = fmt.Errorf("%w: no open order on table", ErrNotFound)
	ErrNoDriver         = fmt.Errorf("%w: order has no assigned driver", ErrState)
	ErrNotOnlineOrder   = fmt.Errorf("%w: only phone or packet orders can be confirmed online", ErrState)
	ErrAlreadyConfirmed = fmt.Errorf("%w: order already confirmed or closed", ErrState)
	ErrOrderClosed      = fmt.Errorf("%w: order is closed", ErrState)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError wraps a failed query so callers can tell it apart from domain errors.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStore, op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
