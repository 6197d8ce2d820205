package services

import (
	"errors"
	"fmt"
)

var (
	ErrAliasRequired   = errors.New("alias is required")
	ErrAliasInUse      = errors.New("a table with that alias is already open")
	ErrTableNotFound   = errors.New("table not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrEntryNotPending = errors.New("entry is not pending")
	ErrSessionClosed   = errors.New("session closed")
)

// ProvisioningError -> gagal membuka meja, tidak ada state yang berubah
type ProvisioningError struct {
	Alias string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision table %q: %v", e.Alias, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
