package domain

import "fmt"

// ResolutionError registry or contract lookup failed. Fatal to startup.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve contract %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// EnumerationError account listing failed. Fatal to startup.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate accounts: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// SyncReadError a read within a pass failed; the pass was aborted.
type SyncReadError struct {
	BlockNumber uint64
	Read        string
	Err         error
}

func (e *SyncReadError) Error() string {
	return fmt.Sprintf("sync block %d: read %s: %v", e.BlockNumber, e.Read, e.Err)
}

func (e *SyncReadError) Unwrap() error { return e.Err }

// TransportError the block notification stream failed.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("block subscription: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
