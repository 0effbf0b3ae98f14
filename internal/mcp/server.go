// Package mcp exposes a single calculator as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ScreenResult is the structured output of every calculator tool.
type ScreenResult struct {
	CurrentOperand  string           `json:"current_operand"`
	PreviousOperand string           `json:"previous_operand"`
	State           calculator.State `json:"state"`
	Result          *float64         `json:"result,omitempty"`
}

// Calculator owns one calculator for the lifetime of the MCP server. Tool
// calls may arrive concurrently, so every call holds mu.
type Calculator struct {
	mu         sync.Mutex
	controller *calculator.Controller
	screen     *calculator.Screen
}

func NewCalculator(logger *zap.Logger) *Calculator {
	screen := &calculator.Screen{}
	return &Calculator{
		controller: calculator.NewController(calculator.NewMachine(logger), screen),
		screen:     screen,
	}
}

// Register adds the calculator tools to s.
func (c *Calculator) Register(s *server.MCPServer) {
	s.AddTool(mcpsdk.NewTool("append_digit",
		mcpsdk.WithDescription("Append a digit or decimal point to the operand being typed"),
		mcpsdk.WithString("token",
			mcpsdk.Required(),
			mcpsdk.Description("Digit 0-9 or '.'"),
		),
	), c.appendDigit)

	s.AddTool(mcpsdk.NewTool("choose_operator",
		mcpsdk.WithDescription("Store the typed operand with an operator (+, -, *, /) and start the second operand"),
		mcpsdk.WithString("symbol",
			mcpsdk.Required(),
			mcpsdk.Description("Operator symbol"),
		),
	), c.chooseOperator)

	s.AddTool(mcpsdk.NewTool("compute",
		mcpsdk.WithDescription("Apply the pending operator; the result becomes the current operand"),
	), c.compute)

	s.AddTool(mcpsdk.NewTool("clear",
		mcpsdk.WithDescription("Reset the calculator"),
	), c.clear)

	s.AddTool(mcpsdk.NewTool("snapshot",
		mcpsdk.WithDescription("Show the calculator display without changing it"),
	), c.snapshot)
}

func (c *Calculator) appendDigit(ctx context.Context, request mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	token, ok := request.GetArguments()["token"].(string)
	if !ok || token == "" {
		return mcpsdk.NewToolResultError("token is required"), nil
	}

	return c.do(ctx, func(ctx context.Context) error {
		c.controller.AppendNumber(ctx, token)
		return nil
	})
}

func (c *Calculator) chooseOperator(ctx context.Context, request mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	symbol, ok := request.GetArguments()["symbol"].(string)
	if !ok || symbol == "" {
		return mcpsdk.NewToolResultError("symbol is required"), nil
	}

	return c.do(ctx, func(ctx context.Context) error {
		_, err := c.controller.ChooseOperator(ctx, symbol)
		return err
	})
}

func (c *Calculator) compute(ctx context.Context, _ mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return c.do(ctx, func(ctx context.Context) error {
		_, err := c.controller.Compute(ctx)
		return err
	})
}

func (c *Calculator) clear(ctx context.Context, _ mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return c.do(ctx, func(ctx context.Context) error {
		c.controller.Clear(ctx)
		return nil
	})
}

func (c *Calculator) snapshot(ctx context.Context, _ mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return c.do(ctx, func(context.Context) error { return nil })
}

// do runs step under the lock with a fresh request id so the controller's
// logs can be correlated per tool call. A failed step is reported as a tool
// error; the calculator is left as it was.
func (c *Calculator) do(ctx context.Context, step func(context.Context) error) (*mcpsdk.CallToolResult, error) {
	ctx = observability.ContextWithRequestID(ctx, observability.NewRequestID())

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := step(ctx); err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	return textResult(c.screenResult()), nil
}

func (c *Calculator) screenResult() ScreenResult {
	snap := c.screen.Snapshot()
	res := ScreenResult{
		CurrentOperand:  snap.Current,
		PreviousOperand: snap.Previous,
		State:           c.controller.Model().State(),
	}
	if result, ok := c.controller.Model().LastResult(); ok && !math.IsNaN(result) && !math.IsInf(result, 0) {
		res.Result = &result
	}
	return res
}

// textResult marshals v to JSON and wraps it in a single text content block.
func textResult(v any) *mcpsdk.CallToolResult {
	b, _ := json.MarshalIndent(v, "", "  ")
	return mcpsdk.NewToolResultText(string(b))
}
