package api

import "github.com/ytget/yt-music-bot/internal/download"

type HealthResponse struct {
	Status      string `json:"status"`
	MaxParallel int    `json:"max_parallel"`
}

type UsersResponse struct {
	Users []download.UserSnapshot `json:"users"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
