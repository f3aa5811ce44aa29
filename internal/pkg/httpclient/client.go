// internal/pkg/httpclient/client.go

package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/errs"
)

const maxErrorBody = 512

// Client 是一个可追踪的HTTP客户端，每次调用都会创建 client span 并注入追踪头。
type Client struct {
	tracer     trace.Tracer
	httpClient *http.Client
}

// NewClient 不设置 http.Client.Timeout，超时完全由调用方传入的 ctx 控制。
func NewClient(tracer trace.Tracer) *Client {
	return &Client{
		tracer: tracer,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// GetJSON 发起 GET 请求并把响应体解码到 v。
// 404 返回包装了 errs.ErrNotFound 的错误，其他非 2xx 状态和网络错误返回 errs.ErrTransientStore。
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "parse url %q", rawURL)
	}
	ctx, span := c.tracer.Start(ctx, "call-"+strings.Split(parsed.Host, ":")[0], trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.url", parsed.String()),
		attribute.String("http.method", http.MethodGet),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(errs.ErrTransientStore, "GET %s: %v", parsed.Redacted(), err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errs.ErrNotFound, "GET %s", parsed.Redacted())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := errors.Wrapf(errs.ErrTransientStore, "GET %s returned %s: %s", parsed.Redacted(), resp.Status, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Status)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "decode response from %s", parsed.Redacted())
	}
	return nil
}
