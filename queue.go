package cloudmere

import (
	"context"
	"slices"
	"time"

	"github.com/cloudmere/cloudmere-go/internal/requestconfig"
	"github.com/cloudmere/cloudmere-go/option"
)

type QueueService struct {
	Options []option.RequestOption
}

func NewQueueService(opts ...option.RequestOption) *QueueService {
	q := &QueueService{opts}
	return q
}

func (q *QueueService) Create(ctx context.Context, params QueueCreateParams, opts ...option.RequestOption) (*QueueCreateResult, error) {
	opts = slices.Concat(q.Options, opts)
	if params.QueueName == "" {
		return nil, ErrMissingQueueName
	}

	res := &QueueCreateResult{}
	err := requestconfig.ExecuteNewRequest(ctx, "CreateQueue", params, res, append(opts, option.WithIdempotency())...)

	return res, err
}

func (q *QueueService) SendBatch(ctx context.Context, params QueueSendBatchParams, opts ...option.RequestOption) (*QueueSendBatchResult, error) {
	opts = slices.Concat(q.Options, opts)
	if params.QueueName == "" {
		return nil, ErrMissingQueueName
	}
	if len(params.Entries) == 0 {
		return nil, ErrEmptyBatch
	}

	res := &QueueSendBatchResult{}
	err := requestconfig.ExecuteNewRequest(ctx, "SendMessageBatch", params, res, opts...)

	return res, err
}

func (q *QueueService) Purge(ctx context.Context, queueName string, opts ...option.RequestOption) error {
	opts = slices.Concat(q.Options, opts)
	if queueName == "" {
		return ErrMissingQueueName
	}

	params := queuePurgeParams{QueueName: queueName}
	err := requestconfig.ExecuteNewRequest(ctx, "PurgeQueue", params, nil, opts...)

	return err
}

type QueueCreateParams struct {
	QueueName string `query:"QueueName"`
	// Attributes contribute their own keys directly to the query string,
	// e.g. VisibilityTimeout or DelaySeconds.
	Attributes map[string]string `query:"Attributes"`
}

type QueueCreateResult struct {
	QueueURL  string    `json:"QueueUrl"`
	CreatedAt time.Time `json:"CreatedAt"`
}

type QueueSendBatchParams struct {
	QueueName string       `query:"QueueName"`
	Entries   []BatchEntry `query:"Entries"`
}

type BatchEntry struct {
	ID           string `query:"Id"`
	Body         string `query:"Body"`
	DelaySeconds int    `query:"DelaySeconds,omitempty"`
}

type QueueSendBatchResult struct {
	Successful []BatchResultEntry `json:"Successful"`
	Failed     []BatchResultEntry `json:"Failed"`
}

type BatchResultEntry struct {
	ID        string `json:"Id"`
	MessageID string `json:"MessageId"`
	Code      string `json:"Code"`
}

type queuePurgeParams struct {
	QueueName string `query:"QueueName"`
}
