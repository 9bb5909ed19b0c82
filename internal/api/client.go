package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ghaggin/courseweb/internal/config"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	tracerName      = "github.com/ghaggin/courseweb/internal/api"
)

// TokenSource supplies the bearer token of the current session, or "" when
// there is none.
type TokenSource interface {
	Token(ctx context.Context) string
}

type tokenKey struct{}

// WithToken returns a context whose calls use token instead of the one held
// by the client's TokenSource.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Client is the authenticated request pipeline to the enrollment service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
	prop    propagation.TextMapPropagator
}

type Params struct {
	fx.In

	Config     *config.Config
	Log        *zap.Logger
	Tokens     TokenSource           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	HTTPClient *http.Client          `optional:"true"`

	TracerProvider trace.TracerProvider          `optional:"true"`
	Propagator     propagation.TextMapPropagator `optional:"true"`
}

func New(p Params) (*Client, error) {
	base, err := url.Parse(p.Config.API.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing api base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("api base url %q must be absolute", p.Config.API.BaseURL)
	}

	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: p.Config.API.Timeout}
	}

	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	tp := p.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := p.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		http:    hc,
		tokens:  p.Tokens,
		log:     log.Named("api"),
		metrics: NewMetrics(p.Registerer),
		tracer:  tp.Tracer(tracerName),
		prop:    prop,
	}, nil
}

// Do issues method against path (relative to the API base URL) and returns
// the raw response. A url.Values body is sent form-encoded, any other non-nil
// body as JSON. Transport errors are returned unchanged; non-2xx responses are
// not turned into errors here.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID(ctx))

	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	ctx, span := c.tracer.Start(ctx, method+" "+routeOf(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.URL.Path),
			attribute.String("request.id", req.Header.Get(headerRequestID)),
		),
	)
	defer span.End()
	c.prop.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.observe(method, "error", elapsed)
		c.log.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.observe(req, resp, elapsed)

	return resp, nil
}

// observe records every response. Unauthorized responses are logged and
// counted; the session is left untouched.
func (c *Client) observe(req *http.Request, resp *http.Response, elapsed time.Duration) {
	c.metrics.observe(req.Method, strconv.Itoa(resp.StatusCode), elapsed)

	if resp.StatusCode == http.StatusUnauthorized {
		c.metrics.unauthorized.Inc()
		c.log.Warn("api responded unauthorized",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", req.Header.Get(headerRequestID)),
		)
	}
}

// requestID reuses the id of the inbound request being served, if any, so
// page and API logs line up.
func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) token(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token(ctx)
}

// call runs Do and decodes a 2xx JSON body into out (which may be nil).
// Non-2xx responses become *Error.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	default:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(b); err != nil {
			return nil, "", errors.Wrap(err, "encoding request body")
		}
		return buf, "application/json", nil
	}
}

// routeOf strips the query and replaces numeric segments so span names stay
// low-cardinality.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
