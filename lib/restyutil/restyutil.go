// Package restyutil attaches tracing hooks to a resty client and can
// dump every HTTP exchange to disk, which is the main way to debug a
// crawl against a live site.
package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExchangeDump receives one rendered request/response pair per request.
type ExchangeDump interface {
	Write(id string, contents string)
}

type hooks struct {
	tracer    trace.Tracer
	dump      ExchangeDump
	idcounter *uint64
}

type ctxKey struct{}

// Instrument adds a span around every request the client makes. When
// dump is non-nil and debug logging is enabled, each exchange is also
// written out under a sequential id.
func Instrument(client *resty.Client, tracer trace.Tracer, dump ExchangeDump) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	h := hooks{tracer: tracer, dump: dump, idcounter: &idcounter}
	client.OnBeforeRequest(h.onBeforeRequest)
	client.OnAfterResponse(h.onAfterResponse)
	client.OnError(h.onError)
}

func (h hooks) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := h.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("url.full", req.URL),
		))

	if h.dump != nil && slog.Default().Enabled(ctx, slog.LevelDebug) {
		id := strconv.FormatUint(atomic.AddUint64(h.idcounter, 1), 10)
		slog.DebugContext(ctx, "start request",
			"method", req.Method, "url", req.URL, "exchange_id", id)
		ctx = context.WithValue(ctx, ctxKey{}, id)
	}

	req.SetContext(ctx)
	return nil
}

func (h hooks) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))

	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		h.dump.Write(id, formatExchange(res))
		slog.DebugContext(ctx, "request finished",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"exchange_id", id)
	}
	return nil
}

func (h hooks) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	slog.ErrorContext(ctx, "request failed",
		"method", req.Method, "url", req.URL, "err", err)
}
