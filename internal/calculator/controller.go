package calculator

import (
	"context"
	"time"

	"go-chi-calculator/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Controller forwards input events to a Machine and renders every successful
// result on a Display. Rejected operations render nothing.
type Controller struct {
	model   *Machine
	display Display
}

func NewController(model *Machine, display Display) *Controller {
	return &Controller{model: model, display: display}
}

// Model exposes the underlying Machine for read-only inspection.
func (c *Controller) Model() *Machine {
	return c.model
}

// AppendNumber appends a digit or decimal point and shows the new operand.
func (c *Controller) AppendNumber(ctx context.Context, token string) string {
	var current string
	_ = c.run(ctx, "append", func(context.Context, trace.Span) error {
		current = c.model.AppendDigit(token)
		c.display.ShowCurrent(current)
		return nil
	}, attribute.String("calculator.token", token))
	return current
}

func (c *Controller) ChooseOperator(ctx context.Context, symbol string) (Snapshot, error) {
	var snap Snapshot
	err := c.run(ctx, "operator", func(context.Context, trace.Span) error {
		var err error
		snap, err = c.model.ChooseOperator(symbol)
		if err != nil {
			return err
		}
		c.render(snap)
		return nil
	}, attribute.String("calculator.operator", symbol))
	return snap, err
}

// Compute evaluates the pending operation. The result is also recorded as
// the calculator.last_result gauge and as a span event.
func (c *Controller) Compute(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.run(ctx, "compute", func(ctx context.Context, span trace.Span) error {
		previous := c.model.Previous()
		operand := c.model.Current()

		var err error
		snap, err = c.model.Compute()
		if err != nil {
			return err
		}

		result, _ := c.model.LastResult()
		resultGauge.Record(ctx, result, metric.WithAttributes(attribute.String("operation", "compute")))

		span.AddEvent("computation.complete", trace.WithAttributes(
			attribute.String("previous_operand", previous),
			attribute.String("current_operand", operand),
			attribute.Float64("result", result),
		))
		span.SetAttributes(attribute.Float64("calculator.result", result))

		observability.LoggerWithTrace(ctx).Info("calculator computation completed",
			zap.String("previous_operand", previous),
			zap.String("current_operand", operand),
			zap.Float64("result", result),
			zap.String("request_id", observability.RequestIDFromContext(ctx)),
		)

		c.render(snap)
		return nil
	})
	return snap, err
}

// Clear resets the model and blanks both display lines.
func (c *Controller) Clear(ctx context.Context) Snapshot {
	var snap Snapshot
	_ = c.run(ctx, "clear", func(context.Context, trace.Span) error {
		snap = c.model.Clear()
		c.render(snap)
		return nil
	})
	return snap
}

func (c *Controller) render(snap Snapshot) {
	c.display.ShowCurrent(snap.Current)
	c.display.ShowPrevious(snap.Previous)
}

// run wraps one state machine step in a span, records the operation metrics
// and logs rejections with trace correlation.
func (c *Controller) run(ctx context.Context, opName string, step func(context.Context, trace.Span) error, attrs ...attribute.KeyValue) error {
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	attrs = append(attrs,
		attribute.String("calculator.operation", opName),
		attribute.String("request.id", requestID),
	)
	ctx, span := tracer.Start(ctx, "calculator."+opName, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := step(ctx, span)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		kind := errorKind(err)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", opName),
			attribute.String("kind", kind),
		))

		logger.Error("calculator operation rejected",
			zap.String("operation", opName),
			zap.String("kind", kind),
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		return err
	}

	opAttrs := metric.WithAttributes(attribute.String("operation", opName))
	opsCounter.Add(ctx, 1, opAttrs)
	opsHistogram.Record(ctx, elapsed, opAttrs)

	span.SetAttributes(
		attribute.String("calculator.current_operand", c.model.Current()),
		attribute.String("calculator.previous_operand", c.model.Previous()),
		attribute.String("calculator.state", string(c.model.State())),
	)
	span.SetStatus(codes.Ok, "")

	logger.Debug("calculator operation completed",
		zap.String("operation", opName),
		zap.String("current_operand", c.model.Current()),
		zap.String("previous_operand", c.model.Previous()),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	return nil
}
