// Package cloudmere is the Go client for the Cloudmere Query API.
package cloudmere

import (
	"context"
	"os"
	"slices"

	"github.com/cloudmere/cloudmere-go/internal/requestconfig"
	"github.com/cloudmere/cloudmere-go/option"
)

type Client struct {
	Options []option.RequestOption
	Queue   *QueueService
	Stack   *StackService
}

func DefaultClientOptions() []option.RequestOption {
	defaults := []option.RequestOption{
		option.WithEnvironmentProduction(),
	}
	if o, ok := os.LookupEnv("CLOUDMERE_BASE_URL"); ok {
		defaults = append(defaults, option.WithBaseURL(o))
	}
	if region, ok := os.LookupEnv("CLOUDMERE_REGION"); ok {
		defaults = append(defaults, option.WithRegion(region))
	}
	return defaults
}

func NewClient(opts ...option.RequestOption) *Client {
	opts = append(DefaultClientOptions(), opts...)

	c := &Client{
		Options: opts,
		Queue:   NewQueueService(opts...),
		Stack:   NewStackService(opts...),
	}

	return c
}

// Execute performs a raw Query protocol action with this client's options.
func (c *Client) Execute(ctx context.Context, action string, params, res any, opts ...option.RequestOption) error {
	opts = slices.Concat(c.Options, opts)
	return requestconfig.ExecuteNewRequest(ctx, action, params, res, opts...)
}
