// Package mcpclient drives a search-online MCP server as a client, used for
// the end-to-end self-test.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"search-online-mcp/internal/domain"
)

// DefaultCallTimeout bounds each self-test tool call.
const DefaultCallTimeout = 120 * time.Second

// SampleQuery is the query issued by the self-test.
const SampleQuery = "OpenAI Codex"

// Client abstracts the mcp-go client for testability.
type Client interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// NewStdio spawns command as an MCP server over stdio. env entries are added
// to the inherited environment.
func NewStdio(command string, env []string, args ...string) (Client, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("create stdio client: %w", err)
	}
	return c, nil
}

// Report summarizes a self-test run.
type Report struct {
	OK              bool     `json:"ok"`
	Server          string   `json:"server"`
	Tools           []string `json:"tools"`
	Count           int      `json:"count"`
	Summary         string   `json:"summary"`
	InvalidRejected bool     `json:"invalid_rejected"`
}

// SelfTest initializes the session, checks the tool is listed, runs one
// sample search and verifies that a call without a query is error-flagged.
func SelfTest(ctx context.Context, c Client, toolName string, callTimeout time.Duration, logger *slog.Logger) (*Report, error) {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "search-online-selftest",
		Version: "0.1.0",
	}
	info, err := c.Initialize(ctx, initReq)
	if err != nil {
		return nil, domain.WrapOp("initialize", err)
	}
	report := &Report{Server: info.ServerInfo.Name}
	logger.Info("selftest connected", "server", info.ServerInfo.Name, "version", info.ServerInfo.Version)

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, domain.WrapOp("list tools", err)
	}
	for _, t := range list.Tools {
		report.Tools = append(report.Tools, t.Name)
	}
	if !contains(report.Tools, toolName) {
		return report, fmt.Errorf("tool %q not listed (got %s)", toolName, strings.Join(report.Tools, ", "))
	}

	res, err := call(ctx, c, toolName, map[string]any{"query": SampleQuery, "limit": 1}, callTimeout)
	if err != nil {
		return report, domain.WrapOp("call "+toolName, err)
	}
	report.Summary = textContent(res)
	if res.IsError {
		return report, fmt.Errorf("%s returned an error: %s", toolName, report.Summary)
	}
	count, err := resultCount(res.StructuredContent)
	if err != nil {
		return report, err
	}
	report.Count = count
	logger.Info("selftest search ok", "summary", report.Summary, "count", count)

	invalid, err := call(ctx, c, toolName, map[string]any{}, callTimeout)
	if err != nil {
		return report, domain.WrapOp("call "+toolName+" without query", err)
	}
	report.InvalidRejected = invalid.IsError
	if !invalid.IsError {
		return report, fmt.Errorf("%s accepted a call without query", toolName)
	}

	report.OK = true
	return report, nil
}

func call(ctx context.Context, c Client, name string, args map[string]any, timeout time.Duration) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.CallTool(callCtx, req)
}

// resultCount reads len(results) from the structured payload.
func resultCount(structured any) (int, error) {
	if structured == nil {
		return 0, fmt.Errorf("%w: missing structured content", domain.ErrMalformedOutput)
	}
	data, err := json.Marshal(structured)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	return len(payload.Results), nil
}

// textContent joins the text parts of a tool result.
func textContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
