package sync

import (
	"errors"
	"fmt"
)

var (
	ErrMissingLiveProduct = errors.New("missing live product")
	ErrTenantLocked       = errors.New("tenant is locked by another run")
)

// MissingLiveProductError is returned when a test plan references a test
// product that has no live counterpart after products were synced.
type MissingLiveProductError struct {
	TestPlanID    string
	TestProductID string
}

func (e *MissingLiveProductError) Error() string {
	return fmt.Sprintf(
		"could not find live product for test product ID %s (test plan %s)",
		e.TestProductID,
		e.TestPlanID,
	)
}

func (e *MissingLiveProductError) Is(target error) bool {
	return target == ErrMissingLiveProduct
}
