// Package option configures requests made by the Cloudmere client. Options
// compose left to right; later options win.
package option

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudmere/cloudmere-go/credentials"
	"github.com/cloudmere/cloudmere-go/internal/requestconfig"
)

type RequestOption = requestconfig.RequestOption

// HTTPDoer describes an [*http.Client] or any custom HTTP implementation.
type HTTPDoer = requestconfig.HTTPDoer

type Middleware = func(*http.Request, MiddlewareNext) (*http.Response, error)
type MiddlewareNext = func(*http.Request) (*http.Response, error)

func WithBaseURL(base string) RequestOption {
	u, err := url.Parse(base)
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if err != nil {
			return fmt.Errorf("option: invalid base url: %w", err)
		}
		r.BaseURL = u
		return nil
	})
}

func WithEnvironmentProduction() RequestOption {
	return withDefaultBaseURL("https://api.cloudmere.dev")
}

func WithEnvironmentDev() RequestOption {
	return withDefaultBaseURL("https://api.dev.cloudmere.dev")
}

// WithRegion points the client at a regional endpoint.
func WithRegion(region string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Region = region
		u, err := url.Parse(fmt.Sprintf("https://api.%s.cloudmere.dev", region))
		if err != nil {
			return fmt.Errorf("option: invalid region %q: %w", region, err)
		}
		r.DefaultBaseURL = u
		return nil
	})
}

func withDefaultBaseURL(base string) RequestOption {
	u, err := url.Parse(base)
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if err != nil {
			return err
		}
		r.DefaultBaseURL = u
		return nil
	})
}

func WithCredentials(accessKeyID, secretAccessKey string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.AccessKeyID = accessKeyID
		r.SecretAccessKey = secretAccessKey
		return nil
	})
}

// WithCredentialsValue applies a loaded [credentials.Credentials], including
// its region and endpoint override when set.
func WithCredentialsValue(creds *credentials.Credentials) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if creds == nil {
			return fmt.Errorf("option: nil credentials")
		}
		r.AccessKeyID = creds.AccessKeyID
		r.SecretAccessKey = creds.SecretAccessKey
		if creds.Region != "" {
			if err := WithRegion(creds.Region).Apply(r); err != nil {
				return err
			}
		}
		if creds.Endpoint != "" {
			return WithBaseURL(creds.Endpoint).Apply(r)
		}
		return nil
	})
}

// WithProfile loads a named profile from a credentials file (see the
// [credentials] package for the file format) and applies it.
func WithProfile(path, name string) RequestOption {
	return requestconfig.PreRequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		creds, err := credentials.LoadProfile(path, name)
		if err != nil {
			return err
		}
		return WithCredentialsValue(creds).Apply(r)
	})
}

func WithAPIVersion(version string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.APIVersion = version
		return nil
	})
}

func WithMaxRetries(retries int) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if retries < 0 {
			return fmt.Errorf("option: max retries cannot be negative")
		}
		r.MaxRetries = retries
		return nil
	})
}

func WithRequestTimeout(timeout time.Duration) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.RequestTimeout = timeout
		return nil
	})
}

func WithHTTPClient(client *http.Client) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if client == nil {
			return fmt.Errorf("option: nil http client")
		}
		r.HTTPClient = client
		return nil
	})
}

func WithHTTPDoer(doer HTTPDoer) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.CustomHTTPDoer = doer
		return nil
	})
}

func WithHeader(key, value string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = map[string]string{}
		}
		r.ExtraHeaders[key] = value
		return nil
	})
}

// WithIdempotency makes the request carry a generated ClientToken argument.
func WithIdempotency() RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Idempotent = true
		return nil
	})
}

// WithIdempotencyToken pins the ClientToken instead of generating one.
func WithIdempotencyToken(token string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Idempotent = true
		r.IdempotencyToken = token
		return nil
	})
}

func WithResponseInto(res **http.Response) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.ResponseInto = res
		return nil
	})
}

func WithMiddleware(middlewares ...Middleware) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Middlewares = append(r.Middlewares, middlewares...)
		return nil
	})
}
