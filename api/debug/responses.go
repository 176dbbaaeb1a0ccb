package debug

import (
	"github.com/t2bot/feed-preloader/preloader"
)

const (
	ErrCodeNotFound   = "FP_NOT_FOUND"
	ErrCodeBadRequest = "FP_BAD_REQUEST"
	ErrCodeUnknown    = "FP_UNKNOWN"
	ErrCodeClosed     = "FP_CLOSED"
	ErrCodeMethod     = "FP_METHOD_NOT_ALLOWED"
)

type EmptyResponse struct{}

type ErrorResponse struct {
	Code    string `json:"errcode"`
	Message string `json:"error"`
}

func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeUnknown, message}
}

func NotFoundError() *ErrorResponse {
	return &ErrorResponse{ErrCodeNotFound, "Not found"}
}

func MethodNotAllowed() *ErrorResponse {
	return &ErrorResponse{ErrCodeMethod, "Method Not Allowed"}
}

func BadRequest(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeBadRequest, message}
}

func ManagerClosed() *ErrorResponse {
	return &ErrorResponse{ErrCodeClosed, "Preloader has been torn down"}
}

type StatsResponse struct {
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Loaded       int    `json:"loaded"`
	Loading      int    `json:"loading"`
	Queued       int    `json:"queued"`
	Failed       int    `json:"failed"`
	CacheSize    int    `json:"cache_size"`
	Started      string `json:"started"`
}

type ItemResponse struct {
	preloader.ItemStatus
	Updated string `json:"updated,omitempty"`
}
