package cloudmere

import "errors"

var (
	ErrMissingQueueName = errors.New("missing required queue name parameter")
	ErrMissingStackName = errors.New("missing required stack name parameter")
	ErrEmptyBatch       = errors.New("batch must contain at least one entry")
)
