// Package fetch turns track URLs into local audio files using yt-dlp.
package fetch
