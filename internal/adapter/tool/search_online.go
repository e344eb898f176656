package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/trace"

	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/tracer"
)

// SearchOnlineName is the advertised tool name.
const SearchOnlineName = "search_online"

const searchOnlineSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Search query string."},
    "vertical": {"type": "string", "enum": ["web", "news", "images", "videos"], "description": "Result category. Defaults to web."},
    "limit": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Maximum number of results."},
    "offset": {"type": "integer", "minimum": 0, "description": "Result offset for paging."},
    "country": {"type": "string", "description": "Country code, e.g. us."},
    "lang": {"type": "string", "description": "Search language, e.g. en."},
    "market": {"type": "string", "description": "UI language / market, e.g. en-US."}
  },
  "required": ["query"]
}`

// SearchOnlineTool answers search_online calls through a SearchService.
type SearchOnlineTool struct {
	service       domain.SearchService
	schema        *jsonschema.Schema
	credentialLen int
	logger        *slog.Logger
}

// NewSearchOnlineTool creates the tool. credentialLen is reported in error
// text for diagnostics; the credential itself never is.
func NewSearchOnlineTool(service domain.SearchService, credentialLen int, logger *slog.Logger) (*SearchOnlineTool, error) {
	schema, err := CompileSchema(SearchOnlineName, []byte(searchOnlineSchema))
	if err != nil {
		return nil, err
	}
	return &SearchOnlineTool{
		service:       service,
		schema:        schema,
		credentialLen: credentialLen,
		logger:        logger,
	}, nil
}

func (t *SearchOnlineTool) Name() string { return SearchOnlineName }
func (t *SearchOnlineTool) Description() string {
	return "Search the web via the search_online shell function (Brave by default), falling back to the Brave API client and then the Brave REST API. Returns standardized JSON."
}

func (t *SearchOnlineTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(searchOnlineSchema),
	}
}

func (t *SearchOnlineTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	requestID := ulid.Make().String()
	logger := t.logger.With("request_id", requestID)
	logger.Info("search_online call", "params", string(params), "credential_len", t.credentialLen)

	result, err := Execute(ctx, "tool.search_online", logger, params,
		func(ctx context.Context, span trace.Span, req domain.SearchRequest) (any, error) {
			return t.search(ctx, span, logger, req)
		},
		WithPreprocess(t.prepareParams),
		WithErrorFormatter(func(err error) string {
			msg := fmt.Sprintf("search_online error: %s (BRAVE_KEY_LEN=%d)", err, t.credentialLen)
			logger.Info("returning error", "message", msg)
			return msg
		}),
	)
	if result != nil {
		result.ToolCallID = requestID
	}
	return result, err
}

func (t *SearchOnlineTool) search(ctx context.Context, span trace.Span, logger *slog.Logger, req domain.SearchRequest) (any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.WithDefaults()
	span.SetAttributes(
		tracer.StringAttr("search.vertical", string(req.Vertical)),
		tracer.IntAttr("search.query_len", len(req.Query)),
	)

	resp, err := t.service.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("ok results=%d", len(resp.Results))
	logger.Info("returning success", "summary", summary, "engine", resp.Engine)
	return &domain.ToolResult{Content: summary, Structured: resp}, nil
}

// prepareParams checks query, coerces numeric fields and validates the
// result against the input schema before decoding.
func (t *SearchOnlineTool) prepareParams(raw json.RawMessage) (json.RawMessage, error) {
	args := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: invalid params: %v", domain.ErrInvalidInput, err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	DropNulls(args)
	if err := RequireString(args, "query"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for _, name := range []string{"limit", "offset"} {
		if err := CoerceInt(args, name); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}

	if err := ValidateAgainst(t.schema, args); err != nil {
		return nil, err
	}
	return json.Marshal(args)
}
