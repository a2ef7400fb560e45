package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const MessageServerError = "Server error"

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func Failure(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// GeneralError hides the cause; callers log it before answering.
func GeneralError() Response {
	return Failure(MessageServerError)
}

func ValidationError(errs validator.ValidationErrors) Response {
	var fields []string
	for _, err := range errs {
		fields = append(fields, err.Field())
	}

	return Failure(strings.Join(fields, " and ") + " required")
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}
