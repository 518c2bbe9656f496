package download

// Package download implements the per-user download orchestration: a task
// registry with admission control, a FIFO queue drained as slots free up,
// playlist aggregation with ordered final delivery, and cancellation.
// Fetching, notification and delivery are injected collaborators.
