package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

// Builder helps construct consistent HTTP responses. Every body carries a
// success flag; failures carry a message and the error kind.
type Builder struct {
	ctx     echo.Context
	status  int
	message string
	data    any
	hasData bool
	err     error
	fields  map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithMessage sets the human-readable message of a successful response.
func (b *Builder) WithMessage(message string) *Builder {
	b.message = message
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	b.hasData = true
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithField adds a top-level field next to data, such as count.
func (b *Builder) WithField(key string, value any) *Builder {
	switch key {
	case "", "success", "message", "data", "error":
		return b
	}
	if b.fields == nil {
		b.fields = make(map[string]any)
	}
	b.fields[key] = value
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	payload := b.base(true)
	if b.message != "" {
		payload["message"] = b.message
	}
	if b.hasData {
		payload["data"] = b.data
	}
	return b.ctx.JSON(b.status, payload)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}

	type errorBody struct {
		Kind    string         `json:"kind"`
		Details map[string]any `json:"details,omitempty"`
	}

	payload := b.base(false)
	payload["message"] = appErr.Message()
	payload["error"] = errorBody{
		Kind:    string(appErr.Kind()),
		Details: appErr.Details(),
	}
	return b.ctx.JSON(status, payload)
}

func (b *Builder) base(success bool) map[string]any {
	payload := make(map[string]any, len(b.fields)+3)
	for k, v := range b.fields {
		payload[k] = v
	}
	payload["success"] = success
	return payload
}
