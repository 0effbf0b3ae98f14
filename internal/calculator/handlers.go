package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var errEmptyInput = errors.New("empty input")

// Handler serves the calculator HTTP API on top of a session Store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ---------------------------------------------------------------------------
// Handlers — sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.store.Create()
	if err != nil {
		h.recordError(ctx, w, "create_session", err.Error(), err, statusFor(err))
		return
	}

	var resp SessionResponse
	_ = sess.Do(func(c *Controller, screen *Screen) error {
		resp = sessionResponse(sess.ID, c, screen)
		return nil
	})
	handlers.WriteJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "get_session", func(context.Context, *Controller) error {
		return nil
	})
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		h.recordError(r.Context(), w, "delete_session", err.Error(), err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendDigit handles POST /calculator/sessions/{id}/digits
func (h *Handler) AppendDigit(w http.ResponseWriter, r *http.Request) {
	var req DigitRequest
	if !h.decode(w, r, "append", &req) {
		return
	}
	if req.Token == "" {
		h.recordError(r.Context(), w, "append", "token is required", errEmptyInput, http.StatusBadRequest)
		return
	}

	h.withSession(w, r, "append", func(ctx context.Context, c *Controller) error {
		c.AppendNumber(ctx, req.Token)
		return nil
	})
}

// ChooseOperator handles POST /calculator/sessions/{id}/operator
func (h *Handler) ChooseOperator(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if !h.decode(w, r, "operator", &req) {
		return
	}
	if req.Symbol == "" {
		h.recordError(r.Context(), w, "operator", "symbol is required", errEmptyInput, http.StatusBadRequest)
		return
	}

	h.withSession(w, r, "operator", func(ctx context.Context, c *Controller) error {
		_, err := c.ChooseOperator(ctx, req.Symbol)
		return err
	})
}

// Compute handles POST /calculator/sessions/{id}/compute
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "compute", func(ctx context.Context, c *Controller) error {
		_, err := c.Compute(ctx)
		return err
	})
}

// Clear handles POST /calculator/sessions/{id}/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "clear", func(ctx context.Context, c *Controller) error {
		c.Clear(ctx)
		return nil
	})
}

// withSession looks up the {id} session, runs step under its lock and writes
// the resulting screen. Failed steps leave the session untouched; the
// controller has already traced and logged them.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, opName string, step func(context.Context, *Controller) error) {
	ctx := r.Context()

	sess, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.recordError(ctx, w, opName, err.Error(), err, statusFor(err))
		return
	}

	var resp SessionResponse
	err = sess.Do(func(c *Controller, screen *Screen) error {
		if err := step(ctx, c); err != nil {
			return err
		}
		resp = sessionResponse(sess.ID, c, screen)
		return nil
	})
	if err != nil {
		handlers.WriteError(w, statusFor(err), err.Error())
		return
	}

	handlers.WriteJSON(w, http.StatusOK, resp)
}

func sessionResponse(id string, c *Controller, screen *Screen) SessionResponse {
	snap := screen.Snapshot()
	resp := SessionResponse{
		SessionID:       id,
		CurrentOperand:  snap.Current,
		PreviousOperand: snap.Previous,
		State:           c.Model().State(),
	}
	if result, ok := c.Model().LastResult(); ok {
		resp.Result = finite(result)
	}
	return resp
}

// ---------------------------------------------------------------------------
// Handlers — one-shot binary operations
// ---------------------------------------------------------------------------

// Add handles POST /calculator/add
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, "add")
}

// Subtract handles POST /calculator/subtract
func (h *Handler) Subtract(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, "subtract")
}

// Multiply handles POST /calculator/multiply
func (h *Handler) Multiply(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, "multiply")
}

// Divide handles POST /calculator/divide
func (h *Handler) Divide(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, "divide")
}

// handleBinaryOp keys a + b into a throwaway Machine exactly as a user
// would (operand, operator, operand, equals) and reports the result.
func (h *Handler) handleBinaryOp(w http.ResponseWriter, r *http.Request, opName string) {
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordError(ctx, w, opName, "invalid request body", err, http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Float64("calculator.operand.a", req.A),
		attribute.Float64("calculator.operand.b", req.B),
	)

	machine := NewMachine(observability.LoggerWithTrace(ctx))
	ctrl := NewController(machine, &Screen{})

	ctrl.AppendNumber(ctx, formatNumber(req.A))
	if _, err := ctrl.ChooseOperator(ctx, symbolFor(opName)); err != nil {
		h.failSpan(span, err, w)
		return
	}
	ctrl.AppendNumber(ctx, formatNumber(req.B))
	snap, err := ctrl.Compute(ctx)
	if err != nil {
		h.failSpan(span, err, w)
		return
	}

	result, _ := machine.LastResult()
	span.SetStatus(codes.Ok, "")

	handlers.WriteJSON(w, http.StatusOK, CalcResponse{
		Operation: opName,
		A:         req.A,
		B:         req.B,
		Result:    finite(result),
		Display:   snap.Current,
	})
}

// ---------------------------------------------------------------------------
// Handler — chained operations
// ---------------------------------------------------------------------------

// Chain handles POST /calculator/chain. Each step keys an operator and a value
// into the same Machine and computes, so every result becomes the left
// operand of the next step. Only one operation is ever pending.
func (h *Handler) Chain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	// Parent span for the entire chain
	ctx, span := tracer.Start(ctx, "calculator.chain",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req ChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordError(ctx, w, "chain", "invalid request body", err, http.StatusBadRequest)
		return
	}

	if len(req.Steps) == 0 {
		h.recordError(ctx, w, "chain", "no steps provided", fmt.Errorf("%w: steps array is empty", errEmptyInput), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Float64("chain.initial", req.Initial),
		attribute.Int("chain.steps_count", len(req.Steps)),
	)

	logger.Info("starting chained calculation",
		zap.Float64("initial", req.Initial),
		zap.Int("steps", len(req.Steps)),
		zap.String("request_id", requestID),
	)

	machine := NewMachine(logger)
	ctrl := NewController(machine, &Screen{})
	ctrl.AppendNumber(ctx, formatNumber(req.Initial))

	results := make([]ChainResult, 0, len(req.Steps))
	var running float64

	for i, step := range req.Steps {
		_, err := ctrl.ChooseOperator(ctx, symbolFor(step.Op))
		if err == nil {
			ctrl.AppendNumber(ctx, formatNumber(step.Value))
			_, err = ctrl.Compute(ctx)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed at step %d", i))

			logger.Error("chain step failed",
				zap.Int("step", i),
				zap.String("operation", step.Op),
				zap.Error(err),
				zap.String("request_id", requestID),
			)

			handlers.WriteError(w, statusFor(err), fmt.Sprintf("step %d: %v", i, err))
			return
		}

		running, _ = machine.LastResult()
		results = append(results, ChainResult{
			Op:     step.Op,
			Value:  step.Value,
			Result: finite(running),
		})
	}

	span.AddEvent("chain.complete", trace.WithAttributes(
		attribute.Float64("final_result", running),
		attribute.Int("total_steps", len(req.Steps)),
	))
	span.SetAttributes(attribute.Float64("chain.result", running))
	span.SetStatus(codes.Ok, "")

	logger.Info("chained calculation completed",
		zap.Float64("initial", req.Initial),
		zap.Float64("result", running),
		zap.Int("steps", len(req.Steps)),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, ChainResponse{
		Initial: req.Initial,
		Steps:   results,
		Result:  finite(running),
		Display: machine.Current(),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, opName string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.recordError(r.Context(), w, opName, "invalid request body", err, http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) recordError(ctx context.Context, w http.ResponseWriter, opName, msg string, err error, status int) {
	span := trace.SpanFromContext(ctx)
	logger := observability.LoggerWithTrace(ctx)
	observability.RecordError(ctx, span, logger, errorCounter, opName, msg, err, status, w)
}

// failSpan marks a one-shot span as failed. The controller has already
// counted and logged the rejection.
func (h *Handler) failSpan(span trace.Span, err error, w http.ResponseWriter) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	handlers.WriteError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// finite returns nil for values JSON cannot carry.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
