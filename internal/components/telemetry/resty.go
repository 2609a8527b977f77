package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"showtimes-scraper/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// MessageOutput receives the formatted contents of every completed request.
type MessageOutput interface {
	Write(id string, contents string)
}

// FormatMessage renders the request and response of res in a human readable form.
type FormatMessage = func(res *resty.Response) string

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	output    MessageOutput
	format    FormatMessage
	idcounter *uint64
}

// InstrumentResty reports every request made by client to tel and wraps it in an otel span.
// `output` and `format` can be nil, if either is, request/response dumps are skipped.
func InstrumentResty(client *resty.Client, tel API, output MessageOutput, format FormatMessage) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer("showtimes.resty"),
		output:    output,
		format:    format,
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
	span      trace.Span
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	start := time.Now()
	ctx, span := i.tracer.Start(req.Context(), req.Method)

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: start,
		span:      span,
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	end := time.Now()
	reqCtx, ok := res.Request.Context().Value(reqCtxKey).(reqCtx)
	if !ok {
		panic("failed to get request context")
	}
	span := reqCtx.span
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		end.Sub(reqCtx.startTime).String(),
		res.Status(),
	)

	if i.output != nil && i.format != nil {
		i.output.Write(strconv.FormatUint(reqCtx.id, 10), i.format(res))
	}

	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	end := time.Now()
	err = restyutil.RedactError(err)

	// a request middleware that fails before onBeforeRequest ran leaves no span behind
	var duration time.Duration
	reqCtx, ok := req.Context().Value(reqCtxKey).(reqCtx)
	if ok {
		duration = end.Sub(reqCtx.startTime)
		reqCtx.span.RecordError(err)
		reqCtx.span.SetStatus(codes.Error, "request failed")
		reqCtx.span.End()
	}

	i.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		restyutil.RedactUrl(req.URL),
		duration,
	)
}
