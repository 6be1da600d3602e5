package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/nao1215/boardcrawl/internal/codec"
	"github.com/nao1215/boardcrawl/internal/model"
)

var tracer = otel.Tracer("github.com/nao1215/boardcrawl/internal/session")

// Client is one leaderboard session.
type Client struct {
	cfg      Config
	http     *resty.Client
	codec    codec.Codec
	logger   *slog.Logger
	counter  *Counter
	observer Observer
	limiter  *rate.Limiter
	tracer   trace.Tracer

	state model.PageState
	page  int
}

// Option configures a Client.
type Option func(*Client)

// WithCodec sets the codec used to read tokens from responses.
func WithCodec(c codec.Codec) Option {
	return func(cl *Client) {
		cl.codec = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithCounter shares a request counter between clients.
func WithCounter(counter *Counter) Option {
	return func(cl *Client) {
		cl.counter = counter
	}
}

// WithObserver sets the request observer.
func WithObserver(obs Observer) Option {
	return func(cl *Client) {
		cl.observer = obs
	}
}

// WithLimiter paces requests. A limiter may be shared between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(cl *Client) {
		cl.limiter = l
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		cl.tracer = t
	}
}

// New creates a Client with a fresh cookie jar.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetCookieJar(jar).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects)).
		SetHeaders(cfg.Headers).
		SetTimeout(cfg.Timeout)

	c := &Client{
		cfg:    cfg,
		http:   httpClient,
		codec:  codec.New(),
		logger: slog.Default(),
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counter == nil {
		c.counter = &Counter{}
	}
	return c, nil
}

// InitialRequest fetches the entry page, which is the age gate for a
// fresh session.
func (c *Client) InitialRequest(ctx context.Context) (string, error) {
	doc, err := c.do(ctx, StepInitial, 0, http.MethodGet, c.cfg.EntryPath, nil)
	if err != nil {
		return "", err
	}
	if err := c.absorb(StepInitial, doc, true, false); err != nil {
		return "", err
	}
	return doc, nil
}

// SubmitGate posts the birth date to the age gate. The redirect that
// follows is handled by the HTTP client.
func (c *Client) SubmitGate(ctx context.Context) (string, error) {
	if !c.state.ViewState.Valid {
		return "", &ProtocolError{Step: StepGate, Field: codec.FieldViewState, Reason: "no view state to submit"}
	}

	form := gateForm(c.state.ViewState.Value, c.cfg.BirthDate)
	doc, err := c.do(ctx, StepGate, 0, http.MethodPost, c.cfg.GatePath, form)
	if err != nil {
		return "", err
	}
	if err := c.absorb(StepGate, doc, false, false); err != nil {
		return "", err
	}
	return doc, nil
}

// LoadFirstPage fetches the entry page again, which now returns page 1 of
// the leaderboard together with the manifest counters.
func (c *Client) LoadFirstPage(ctx context.Context) (string, error) {
	doc, err := c.do(ctx, StepFirstPage, 1, http.MethodGet, c.cfg.EntryPath, nil)
	if err != nil {
		return "", err
	}
	if err := c.absorb(StepFirstPage, doc, true, true); err != nil {
		return "", err
	}
	c.page = 1
	return doc, nil
}

// Bootstrap runs InitialRequest, SubmitGate and LoadFirstPage and returns
// the first page document.
func (c *Client) Bootstrap(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "session.Bootstrap")
	defer span.End()

	if _, err := c.InitialRequest(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initial request failed")
		return "", err
	}
	if _, err := c.SubmitGate(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "age gate failed")
		return "", err
	}
	doc, err := c.LoadFirstPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "first page failed")
		return "", err
	}
	return doc, nil
}

// RequestPage jumps to page by posting the rank of its first row.
func (c *Client) RequestPage(ctx context.Context, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("invalid page number %d", page)
	}
	if err := c.requireState(StepRank); err != nil {
		return "", err
	}

	rank := RankForPage(page, c.cfg.PageSize)
	form := rankForm(c.state.ViewState.Value, c.state.PreviousPage.Value, rank)
	doc, err := c.do(ctx, StepRank, page, http.MethodPost, c.cfg.EntryPath, form)
	if err != nil {
		return "", err
	}
	if err := c.absorb(StepRank, doc, true, true); err != nil {
		return "", err
	}
	c.page = page
	return doc, nil
}

// RequestNextPage advances one page with the pager's next control.
func (c *Client) RequestNextPage(ctx context.Context) (string, error) {
	if err := c.requireState(StepNext); err != nil {
		return "", err
	}

	form := nextPageForm(c.state.ViewState.Value, c.state.PreviousPage.Value)
	doc, err := c.do(ctx, StepNext, c.page+1, http.MethodPost, c.cfg.EntryPath, form)
	if err != nil {
		return "", err
	}
	if err := c.absorb(StepNext, doc, true, true); err != nil {
		return "", err
	}
	c.page++
	return doc, nil
}

func (c *Client) requireState(step Step) error {
	switch {
	case !c.state.ViewState.Valid:
		return &ProtocolError{Step: step, Field: codec.FieldViewState, Reason: "session not bootstrapped"}
	case !c.state.PreviousPage.Valid:
		return &ProtocolError{Step: step, Field: codec.FieldPreviousPage, Reason: "session not bootstrapped"}
	}
	return nil
}

// absorb merges the tokens of doc into the session state. A required token
// missing from doc is a protocol violation.
func (c *Client) absorb(step Step, doc string, needViewState, needPreviousPage bool) error {
	next, err := c.codec.PageState(doc)
	if err != nil && !errors.Is(err, codec.ErrStateNotFound) {
		return fmt.Errorf("%s: %w", step, err)
	}
	if needViewState && !next.ViewState.Valid {
		return &ProtocolError{Step: step, Field: codec.FieldViewState, Reason: "token missing from response"}
	}
	if needPreviousPage && !next.PreviousPage.Valid {
		return &ProtocolError{Step: step, Field: codec.FieldPreviousPage, Reason: "token missing from response"}
	}
	c.state = c.state.Merge(next)
	return nil
}

// do issues one request and returns the decoded body.
func (c *Client) do(ctx context.Context, step Step, page int, method, path string, form map[string]string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "session."+method, trace.WithAttributes(
		attribute.String("boardcrawl.step", string(step)),
		attribute.Int("boardcrawl.page", page),
		attribute.String("http.method", method),
	))
	defer span.End()

	url := c.http.BaseURL + path
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Step: step, Method: method, URL: url, Err: err}
		}
	}

	seq := c.counter.Next()
	ev := RequestEvent{Seq: seq, Step: step, Page: page, Method: method, URL: url}
	span.SetAttributes(attribute.Int64("boardcrawl.seq", seq))

	req := c.http.R().SetContext(ctx)
	if form != nil {
		req.SetFormData(form)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	ev.Elapsed = time.Since(start)
	if resp != nil {
		ev.Status = resp.StatusCode()
	}

	if err != nil {
		terr := &TransportError{Step: step, Method: method, URL: url, StatusCode: ev.Status, Seq: seq, Err: err}
		return "", c.fail(span, ev, terr)
	}
	span.SetAttributes(attribute.Int("http.status_code", ev.Status))
	if !resp.IsSuccess() {
		terr := &TransportError{Step: step, Method: method, URL: url, StatusCode: ev.Status, Seq: seq}
		return "", c.fail(span, ev, terr)
	}

	c.notify(ev)
	c.logger.Debug("request completed",
		"seq", seq,
		"step", string(step),
		"page", page,
		"status", ev.Status,
		"elapsed", ev.Elapsed,
	)
	return codec.DecodeBody(resp.Body(), resp.Header().Get("Content-Type")), nil
}

func (c *Client) fail(span trace.Span, ev RequestEvent, err *TransportError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	ev.Err = err
	c.notify(ev)
	return err
}

func (c *Client) notify(ev RequestEvent) {
	if c.observer != nil {
		c.observer.ObserveRequest(ev)
	}
}
