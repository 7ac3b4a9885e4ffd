package paging

import "fmt"

// NetworkState is the loading status observed by the presentation layer.
type NetworkState int

const (
	Idle NetworkState = iota
	Running
	Success
	Empty
	Error
)

func (s NetworkState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Success:
		return "SUCCESS"
	case Empty:
		return "EMPTY"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("NetworkState(%d)", int(s))
	}
}

// MarshalText lets the state render as its name in JSON and logs.
func (s NetworkState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FetchError records a failed page or range request. It never escapes a loader's
// public operations; it is only reported through LastError and logs.
type FetchError struct {
	Page  int
	Start int
	Size  int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (start %d, size %d): %v", e.Page, e.Start, e.Size, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
