package jobs

import "context"

// Manager defines the interface for background job processing.
// MemoryManager keeps the queue inside the process; SpoolManager shares it
// with other processes through a directory.
type Manager interface {
	// Start begins processing jobs.
	Start(ctx context.Context) error

	// Stop gracefully shuts down job processing.
	// Waits for in-flight jobs to complete or context timeout.
	Stop(ctx context.Context) error

	// Enqueue schedules a job and returns as soon as the backend accepted it.
	Enqueue(ctx context.Context, job Job) (Receipt, error)

	// Handle registers the handler that performs jobs of the given type.
	Handle(jobType string, h Handler)

	// Status returns current queue statistics.
	Status() Status
}
