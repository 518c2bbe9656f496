package download

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRequest means the URL is already active or queued for the user
	ErrDuplicateRequest = errors.New("this track is already downloading or queued")

	// ErrCapacityExceeded means the user has no free download slot
	ErrCapacityExceeded = errors.New("too many parallel downloads")

	// ErrCancelledByUser is the cancellation cause of tasks stopped by CancelAll
	ErrCancelledByUser = errors.New("cancelled by user")

	// ErrEmptyPlaylist is returned when a playlist resolves to no tracks
	ErrEmptyPlaylist = errors.New("playlist has no tracks")

	// ErrInvalidTrack is returned for a track without URL
	ErrInvalidTrack = errors.New("track has no url")

	// ErrNoFile is returned when the fetcher reports success without a file
	ErrNoFile = errors.New("fetch produced no file")
)

// CapacityExceededError carries the counts shown to the user.
type CapacityExceededError struct {
	Active int
	Limit  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d slots in use", ErrCapacityExceeded, e.Active, e.Limit)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// FetchError is a per-track failure of the fetch service. It is never retried by the coordinator.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeliveryError means sending a finished file failed.
type DeliveryError struct {
	Path string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Path, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
