package option

import (
	"net/http"
	"net/http/httputil"
	"regexp"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var sensitiveHeaderRegex = regexp.MustCompile(`(?im)^(Authorization|Cookie|Set-Cookie|X-Api-Key): .+`)

func redactSensitiveHeaders(s string) string {
	return sensitiveHeaderRegex.ReplaceAllString(s, "$1: [REDACTED]")
}

// WithDebugLog logs a redacted dump of every request and response.
func WithDebugLog(logger *zap.Logger) RequestOption {
	if logger == nil {
		logger = zap.NewNop()
	}

	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		if dump, err := httputil.DumpRequestOut(r, true); err == nil {
			logger.Debug("request", zap.String("dump", redactSensitiveHeaders(string(dump))))
		}

		resp, err := next(r)

		if resp != nil {
			if dump, err := httputil.DumpResponse(resp, true); err == nil {
				logger.Debug("response", zap.String("dump", redactSensitiveHeaders(string(dump))))
			}
		}

		if err != nil {
			logger.Error("request failed", zap.Error(err))
		}

		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// WithTracing instruments the request with an otelhttp client span using the
// globally registered tracer provider.
func WithTracing(opts ...otelhttp.Option) RequestOption {
	opts = append([]otelhttp.Option{
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
	}, opts...)
	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		return otelhttp.NewTransport(roundTripperFunc(next), opts...).RoundTrip(r)
	})
}

// WithTracerProvider is [WithTracing] with an explicit provider.
func WithTracerProvider(tp trace.TracerProvider) RequestOption {
	return WithTracing(otelhttp.WithTracerProvider(tp))
}
