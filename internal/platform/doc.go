package platform

// Package platform contains OS and external tooling glue: URL
// classification, playlist expansion and search via the yt-dlp CLI,
// filesystem helpers and binary checks.
