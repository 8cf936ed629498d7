package remoteaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is returned when a Request does not satisfy its preconditions.
var ErrInvalidRequest = errors.New("remoteaction: invalid request")

// Reaction is invoked with the response that selected it.
type Reaction func(ctx context.Context, resp Response)

// Request describes a single remote action invocation. A Request is built at
// the UI boundary, run once and discarded.
type Request struct {
	Operation string            `validate:"required"`
	Args      map[string]string `validate:"-"`
	Prompt    string            `validate:"-"`
	OnSuccess Reaction          `validate:"required"`
	OnFailure Reaction          `validate:"required"`
}

// Response is what a Caller hands back for a remote operation. Transport and
// server failures are folded into Err; Message carries the raw payload field.
type Response struct {
	Message        json.RawMessage
	Err            error
	ServerMessages []string
}

// Outcome is the resolved result of a Run.
type Outcome int

const (
	// Declined means the user did not confirm; nothing was called.
	Declined Outcome = iota
	// Succeeded means the response carried a truthy payload.
	Succeeded
	// Failed means the response was falsy or the call failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Declined:
		return "declined"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result pairs an outcome with the response that produced it.
type Result struct {
	Outcome  Outcome
	Response Response
	Err      error
}

// Caller invokes a named remote operation. Implementations never return a Go
// error; failures are reported through Response.Err.
type Caller interface {
	Call(ctx context.Context, operation string, args map[string]string) Response
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, operation string, args map[string]string) Response

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, operation string, args map[string]string) Response {
	return f(ctx, operation, args)
}

// Confirmer asks the user to approve a prompt.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

var validate = validator.New()

// Validate reports whether the request satisfies its preconditions.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
