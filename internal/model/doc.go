package model

// Package model defines domain data structures used across the bot: tracks,
// download tasks, queued items, playlist downloads and status enums.
// Structures carry explicit state transitions; synchronisation is the owner's job.
