package resource

import (
	"fmt"

	"github.com/kritgpt/matstat/pkg/training"
)

type MessageResource struct {
	Message string `json:"message"`
}

// ErrorResource is the body of every failed request.
type ErrorResource struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func NewMessage(format string, a ...interface{}) *MessageResource {
	return &MessageResource{Message: fmt.Sprintf(format, a...)}
}

// NewError hides the details of errors that are not training errors.
func NewError(err error) *ErrorResource {
	reason := training.ReasonOf(err)
	if reason == "" {
		return &ErrorResource{Message: "Internal server error"}
	}

	return &ErrorResource{
		Message: training.MessageOf(err),
		Reason:  reason.String(),
	}
}
