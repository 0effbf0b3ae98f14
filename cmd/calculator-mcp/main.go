package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/mcp"
	"go-chi-calculator/internal/observability"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	var (
		portFlag     = flag.Int("port", 0, "TCP port to listen on (0 for stdio)")
		logLevelFlag = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		versionFlag  = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println("calculator-mcp v" + version)
		os.Exit(0)
	}

	// zap's production logger writes to stderr, which keeps stdout free for
	// the stdio transport.
	if err := observability.InitLogger(*logLevelFlag); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer observability.SyncLogger()

	if err := calculator.InitMetrics(); err != nil {
		observability.Logger.Fatal("init metrics", zap.Error(err))
	}

	mcpServer := server.NewMCPServer(
		"calculator-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	mcp.NewCalculator(observability.Logger).Register(mcpServer)

	if *portFlag == 0 {
		observability.Logger.Info("serving MCP over stdio")
		if err := server.ServeStdio(mcpServer); err != nil && !errors.Is(err, context.Canceled) {
			observability.Logger.Fatal("stdio server failed", zap.Error(err))
		}
		return
	}

	addr := fmt.Sprintf(":%d", *portFlag)
	httpServer := server.NewStreamableHTTPServer(mcpServer)
	observability.Logger.Info("serving MCP over streamable HTTP", zap.String("addr", addr))
	if err := httpServer.Start(addr); err != nil {
		observability.Logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
