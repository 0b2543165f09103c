package storage

import "fmt"

// StorageError reports a failed fetch or write.
type StorageError struct {
	Op       string
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
