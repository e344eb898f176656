package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/tracer"
)

// ExecOption customizes the Execute pipeline.
type ExecOption func(*execOptions)

type execOptions struct {
	preprocess  func(json.RawMessage) (json.RawMessage, error)
	formatError func(error) string
}

// WithPreprocess runs fn on the raw params before they are decoded. An error
// from fn is reported like a handler error.
func WithPreprocess(fn func(json.RawMessage) (json.RawMessage, error)) ExecOption {
	return func(o *execOptions) { o.preprocess = fn }
}

// WithErrorFormatter replaces the default error text of failed calls.
func WithErrorFormatter(fn func(error) string) ExecOption {
	return func(o *execOptions) { o.formatError = fn }
}

// Execute is the standard tool execution pipeline: start trace -> preprocess
// params -> parse params -> run handler -> format result.
//
// The handler receives the parsed params and an active trace span. It should return:
//   - (*domain.ToolResult, nil): returned as-is (for custom formatting)
//   - (string, nil): wrapped in a plain-text ToolResult
//   - (any other Go value, nil): JSON-marshaled into Content and kept as Structured
//   - (nil, error): turned into an error ToolResult with logging
func Execute[P any](
	ctx context.Context,
	spanName string,
	logger *slog.Logger,
	rawParams json.RawMessage,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
	opts ...ExecOption,
) (*domain.ToolResult, error) {
	o := execOptions{formatError: defaultErrorText}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := tracer.StartSpan(ctx, spanName,
		trace.WithAttributes(tracer.StringAttr("tool.name", spanName)),
	)
	defer span.End()

	fail := func(err error) (*domain.ToolResult, error) {
		tracer.RecordError(span, err)
		logger.Warn(spanName+" failed", "error", err, "code", domain.ErrorCodeOf(err))
		return &domain.ToolResult{
			IsError:     true,
			IsRetryable: classifyToolError(err),
			Content:     o.formatError(err),
		}, nil
	}

	if o.preprocess != nil {
		processed, err := o.preprocess(rawParams)
		if err != nil {
			return fail(err)
		}
		rawParams = processed
	}

	var p P
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fail(fmt.Errorf("%w: invalid params: %v", domain.ErrInvalidInput, err))
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		return fail(err)
	}

	return formatResult(span, result)
}

// defaultErrorText is the error text used when no formatter is configured.
func defaultErrorText(err error) string {
	content := err.Error()
	if classifyToolError(err) {
		content += " (transient error, may succeed on retry)"
	}
	return content
}

// formatResult converts the handler's return value into a ToolResult.
func formatResult(span trace.Span, result any) (*domain.ToolResult, error) {
	switch v := result.(type) {
	case *domain.ToolResult:
		if v.IsError {
			tracer.RecordError(span, fmt.Errorf("%s", v.Content))
		} else {
			tracer.SetOK(span)
		}
		return v, nil
	case string:
		tracer.SetOK(span)
		return &domain.ToolResult{Content: v}, nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			tracer.RecordError(span, err)
			return &domain.ToolResult{
				IsError: true,
				Content: fmt.Sprintf("failed to format response: %v", err),
			}, nil
		}
		tracer.SetOK(span)
		return &domain.ToolResult{Content: string(data), Structured: result}, nil
	}
}
