package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// Business codes carried in [Envelope.Code].
const (
	SuccessCode         = 200001
	CodeUnauthorized    = 401001
	CodeTooManyRequests = 429001
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Success writes a 200 envelope carrying data.
func Success(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Envelope{Code: SuccessCode, Message: "Success", Data: data})
}

// Fail writes an error envelope with the given HTTP status and message.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	code := status
	switch status {
	case http.StatusUnauthorized:
		code = CodeUnauthorized
	case http.StatusTooManyRequests:
		code = CodeTooManyRequests
	}

	render.Status(r, status)
	render.JSON(w, r, Envelope{Code: code, Message: message})
}
