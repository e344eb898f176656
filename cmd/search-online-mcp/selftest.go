package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"search-online-mcp/internal/adapter/mcpclient"
	"search-online-mcp/internal/adapter/tool"
)

// runSelfTest spawns this binary as a stdio MCP server and exercises the
// search_online tool through a real client session.
func runSelfTest() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	c, err := mcpclient.NewStdio(exe, nil, "serve", "--config", configPath(os.Args))
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := mcpclient.SelfTest(ctx, c, tool.SearchOnlineName, mcpclient.DefaultCallTimeout, log)
	if report != nil {
		if werr := writeReport(os.Stdout, report); werr != nil {
			return werr
		}
	}
	return err
}

func writeReport(w io.Writer, report *mcpclient.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
