package model

// TaskStatus represents the status of a download task
type TaskStatus string

const (
	// TaskStatusQueued means the task waits for a free slot
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusDownloading means the fetch is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusDelivering means the file is being sent to the chat
	TaskStatusDelivering TaskStatus = "Delivering"

	// TaskStatusCancelling means cancellation was signalled but the fetch has not returned yet
	TaskStatusCancelling TaskStatus = "Cancelling"

	// TaskStatusCancelled means the task was stopped by user
	TaskStatusCancelled TaskStatus = "Cancelled"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusFailed means the task failed with an error
	TaskStatusFailed TaskStatus = "Failed"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task occupies a download slot
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusDownloading || ts == TaskStatusDelivering
}

// IsFinished returns true if the task is in a finished state (completed, cancelled, or failed).
// A task that is being cancelled counts as finished: it no longer holds a slot.
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusCancelled || ts == TaskStatusFailed || ts == TaskStatusCancelling
}

// TrackStatus represents the status of a single track in a playlist download
type TrackStatus string

const (
	TrackStatusPending     TrackStatus = "pending"
	TrackStatusDownloading TrackStatus = "downloading"
	TrackStatusCompleted   TrackStatus = "completed"
	TrackStatusFailed      TrackStatus = "failed"
)

// IsTerminal reports whether the track reached completed or failed
func (ts TrackStatus) IsTerminal() bool {
	return ts == TrackStatusCompleted || ts == TrackStatusFailed
}
