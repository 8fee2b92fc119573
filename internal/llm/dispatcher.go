package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/pkg/logger"
	"github.com/capitalize-ai/classroom/pkg/metrics"
	"github.com/capitalize-ai/classroom/pkg/tracing"
)

// Call is one provider invocation of a dispatch.
type Call struct {
	ProviderID string
	Model      string
	Messages   []ChatMessage
}

// Result is the settled outcome of one Call. Error is empty on success and
// Response is empty on failure.
type Result struct {
	ProviderID string `json:"providerId"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
	Model      string `json:"model,omitempty"`
	LatencyMs  int64  `json:"latencyMs"`
}

// Failed reports whether the call errored.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Dispatcher fans one turn out to several providers and waits for all of them.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *logger.Logger
}

// NewDispatcher creates a dispatcher. A zero timeout leaves calls bounded only
// by ctx.
func NewDispatcher(registry *Registry, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{registry: registry, timeout: timeout, logger: log}
}

// Dispatch sends the same messages to every provider id. Duplicate ids are
// called once per occurrence.
func (d *Dispatcher) Dispatch(ctx context.Context, providerIDs []string, messages []ChatMessage) []Result {
	calls := make([]Call, len(providerIDs))
	for i, id := range providerIDs {
		calls[i] = Call{ProviderID: id, Messages: messages}
	}
	return d.DispatchCalls(ctx, calls)
}

// DispatchCalls runs every call concurrently and returns once all have
// settled. results[i] always belongs to calls[i]; a failing call never
// affects the others.
func (d *Dispatcher) DispatchCalls(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	metrics.DispatchFanout.Observe(float64(len(calls)))

	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.call(ctx, calls[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) call(ctx context.Context, call Call) (result Result) {
	result.ProviderID = call.ProviderID
	start := time.Now()

	ctx, span := tracing.Tracer().Start(ctx, "llm.complete")
	span.SetAttributes(
		attribute.String("provider", call.ProviderID),
		attribute.String("model", call.Model),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("provider panicked",
				zap.String("provider", call.ProviderID),
				zap.Any("panic", r),
			)
			result = Result{ProviderID: call.ProviderID, Error: fmt.Sprintf("provider %s failed: %v", call.ProviderID, r)}
			span.SetStatus(codes.Error, "panic")
		}
		result.LatencyMs = time.Since(start).Milliseconds()
	}()

	client, ok := d.registry.Get(call.ProviderID)
	if !ok {
		result.Error = fmt.Sprintf("provider %s not found", call.ProviderID)
		span.SetStatus(codes.Error, result.Error)
		metrics.RecordLLMCall(call.ProviderID, "not_found", 0, 0, 0)
		return result
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := client.Complete(ctx, &CompletionRequest{
		Model:    call.Model,
		Messages: call.Messages,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		result.Error = errorMessage(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Error)
		metrics.RecordLLMCall(call.ProviderID, "error", elapsed, 0, 0)
		d.logger.Warn("provider call failed",
			zap.String("provider", call.ProviderID),
			zap.String("model", call.Model),
			zap.Error(err),
		)
		return result
	}

	result.Response = resp.Content
	result.Model = resp.Model
	span.SetAttributes(
		attribute.Int("tokens_in", resp.TokensIn),
		attribute.Int("tokens_out", resp.TokensOut),
	)
	metrics.RecordLLMCall(call.ProviderID, "success", elapsed, resp.TokensIn, resp.TokensOut)
	return result
}

func errorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown error"
}
