package requestconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/cloudmere/cloudmere-go/apierror"
	"github.com/cloudmere/cloudmere-go/internal"
	"github.com/cloudmere/cloudmere-go/internal/apijson"
	"github.com/cloudmere/cloudmere-go/internal/apiquery"
	"github.com/cloudmere/cloudmere-go/internal/signer"
)

// This interface is primarily used to describe an [*http.Client], but also
// supports custom HTTP implementations.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestConfig represents all the state related to one request.
//
// Editing the variables inside RequestConfig directly is unstable api. Prefer
// composing the RequestOption instead if possible.
type RequestConfig struct {
	MaxRetries     int
	RequestTimeout time.Duration
	Context        context.Context
	Request        *http.Request
	BaseURL        *url.URL
	// DefaultBaseURL will be used if BaseURL is not explicitly overridden using
	// WithBaseURL.
	DefaultBaseURL  *url.URL
	CustomHTTPDoer  HTTPDoer
	HTTPClient      *http.Client
	Middlewares     []middleware
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	APIVersion      string
	ExtraHeaders    map[string]string
	// Idempotent requests carry a generated ClientToken argument so the
	// service can deduplicate retried submissions.
	Idempotent       bool
	IdempotencyToken string
	// If ResponseBodyInto not nil, then we will attempt to deserialize into
	// ResponseBodyInto. If Destination is a []byte, then it will return the body as
	// is.
	ResponseBodyInto any
	// ResponseInto copies the \*http.Response of the corresponding request into the
	// given address
	ResponseInto **http.Response
}

// middleware is exactly the same type as the Middleware type found in the [option] package,
// but it is redeclared here for circular dependency issues.
type middleware = func(*http.Request, middlewareNext) (*http.Response, error)

// middlewareNext is exactly the same type as the MiddlewareNext type found in the [option] package,
// but it is redeclared here for circular dependency issues.
type middlewareNext = func(*http.Request) (*http.Response, error)

type RequestOption interface {
	Apply(*RequestConfig) error
}

type RequestOptionFunc func(*RequestConfig) error
type PreRequestOptionFunc func(*RequestConfig) error

func (s RequestOptionFunc) Apply(r *RequestConfig) error {
	return s(r)
}

func (s PreRequestOptionFunc) Apply(r *RequestConfig) error {
	return s(r)
}

const defaultAPIVersion = "2024-05-01"

func getDefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent": fmt.Sprintf("Cloudmere/Client %s", internal.PackageVersion),
	}
}

func getNormalizedOS() string {
	switch runtime.GOOS {
	case "ios":
		return "iOS"
	case "android":
		return "Android"
	case "darwin":
		return "MacOS"
	case "window":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	case "openbsd":
		return "OpenBSD"
	case "linux":
		return "Linux"
	default:
		return fmt.Sprintf("Other:%s", runtime.GOOS)
	}
}

func getNormalizedArchitecture() string {
	switch runtime.GOARCH {
	case "386":
		return "x32"
	case "amd64":
		return "x64"
	case "arm":
		return "arm"
	case "arm64":
		return "arm64"
	default:
		return fmt.Sprintf("other:%s", runtime.GOARCH)
	}
}

func getPlatformProperties() map[string]string {
	return map[string]string{
		"X-Cloudmere-Lang":            "go",
		"X-Cloudmere-Package-Version": internal.PackageVersion,
		"X-Cloudmere-OS":              getNormalizedOS(),
		"X-Cloudmere-Arch":            getNormalizedArchitecture(),
		"X-Cloudmere-Runtime":         "go",
		"X-Cloudmere-Runtime-Version": runtime.Version(),
	}
}

// now is swapped out in tests for a fixed Timestamp argument.
var now = time.Now

// NewRequestConfig applies the options and assembles the signed form body
// for one Query protocol call.
func NewRequestConfig(ctx context.Context, action string, params any, dst any, opts ...RequestOption) (*RequestConfig, error) {
	cfg := RequestConfig{
		MaxRetries:       2,
		Context:          ctx,
		APIVersion:       defaultAPIVersion,
		HTTPClient:       http.DefaultClient,
		ResponseBodyInto: dst,
	}
	for _, opt := range opts {
		if err := opt.Apply(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.BaseURL == nil {
		cfg.BaseURL = cfg.DefaultBaseURL
	}
	if cfg.BaseURL == nil {
		return nil, fmt.Errorf("requestconfig: no base url configured")
	}

	sgn, err := signer.New(cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	var token *string
	if cfg.Idempotent {
		t := cfg.IdempotencyToken
		if t == "" {
			t = uuid.NewString()
		}
		token = &t
	}

	// Protocol arguments go ahead of the caller's; each step inserts at the
	// front, so Action ends up first on the wire.
	args := apiquery.Marshal(params)
	args = apiquery.AddOne(apiquery.EncodeString, "Version", cfg.APIVersion)(args)
	args = apiquery.AddOne(encodeTimestamp, "Timestamp", now())(args)
	args = apiquery.OptionalMember(apiquery.EncodeString, "ClientToken", token)(args)
	args = apiquery.AddOne(apiquery.EncodeString, "Action", action)(args)

	path := cfg.BaseURL.Path
	if path == "" {
		path = "/"
	}
	signed := sgn.Sign(http.MethodPost, cfg.BaseURL.Host, path, args)
	body := encodeForm(signed)

	u := *cfg.BaseURL
	u.Path = path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	for k, v := range getDefaultHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range getPlatformProperties() {
		req.Header.Set(k, v)
	}
	for k, v := range cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}

	cfg.Request = req
	return &cfg, nil
}

// encodeForm writes the arguments as a form body in list order, escaping
// keys and values with the protocol's own rules rather than net/url's.
func encodeForm(args apiquery.Args) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(apiquery.EscapeURI(arg.Key))
		b.WriteByte('=')
		b.WriteString(apiquery.EscapeURI(arg.Value))
	}
	return b.String()
}

func encodeTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func retryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

// Execute runs the configured request through the middleware chain, retrying
// retryable statuses with exponential backoff, and decodes the response.
func (cfg *RequestConfig) Execute() error {
	handler := cfg.httpDo
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		mw := cfg.Middlewares[i]
		next := handler
		handler = func(r *http.Request) (*http.Response, error) {
			return mw(r, next)
		}
	}

	type attemptResult struct {
		res *http.Response
		raw []byte
	}

	// Each attempt consumes the response body before returning so that a
	// per-attempt timeout context can be released immediately.
	attempt := func() (attemptResult, error) {
		ctx := cfg.Context
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}
		req := cfg.Request.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return attemptResult{}, backoff.Permanent(err)
			}
			req.Body = body
		}

		res, err := handler(req)
		if err != nil {
			return attemptResult{}, err
		}
		raw, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return attemptResult{}, fmt.Errorf("requestconfig: reading response body: %w", err)
		}

		if retryable(res.StatusCode) {
			// Surface the service fault even when retries run out, so the
			// final error still matches *apierror.Error.
			apiErr := decodeError(res.StatusCode, raw)
			if after := res.Header.Get("Retry-After"); after != "" {
				if seconds, perr := strconv.Atoi(after); perr == nil && seconds >= 0 {
					return attemptResult{}, errors.Join(apiErr, &backoff.RetryAfterError{
						Duration: time.Duration(seconds) * time.Second,
					})
				}
			}
			return attemptResult{}, apiErr
		}
		return attemptResult{res: res, raw: raw}, nil
	}

	maxTries := cfg.MaxRetries + 1
	if maxTries < 1 {
		maxTries = 1
	}
	result, err := backoff.Retry(cfg.Context, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
	)
	if err != nil {
		return err
	}
	res, raw := result.res, result.raw

	if cfg.ResponseInto != nil {
		res.Body = io.NopCloser(bytes.NewReader(raw))
		*cfg.ResponseInto = res
	}

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res.StatusCode, raw)
	}

	switch dst := cfg.ResponseBodyInto.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = raw
		return nil
	default:
		return apijson.UnmarshalRoot(raw, dst)
	}
}

// errorEnvelope is the fault shape the service returns for every action.
type errorEnvelope struct {
	Error     apierror.Error `json:"Error"`
	RequestID string         `json:"RequestId"`
}

func decodeError(status int, raw []byte) error {
	var env errorEnvelope
	if err := apijson.UnmarshalRoot(raw, &env); err != nil || env.Error.Code == "" {
		return &apierror.Error{
			Code:       http.StatusText(status),
			Message:    string(bytes.TrimSpace(raw)),
			StatusCode: status,
		}
	}
	apiErr := env.Error
	apiErr.RequestID = env.RequestID
	apiErr.StatusCode = status
	return &apiErr
}

func (cfg *RequestConfig) httpDo(req *http.Request) (*http.Response, error) {
	if cfg.CustomHTTPDoer != nil {
		return cfg.CustomHTTPDoer.Do(req)
	}
	return cfg.HTTPClient.Do(req)
}

// ExecuteNewRequest performs one Query protocol action end to end.
func ExecuteNewRequest(ctx context.Context, action string, params, res any, opts ...RequestOption) error {
	cfg, err := NewRequestConfig(ctx, action, params, res, opts...)
	if err != nil {
		return err
	}
	return cfg.Execute()
}
