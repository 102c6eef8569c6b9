package apijson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type queueResult struct {
	QueueURL   string            `json:"QueueUrl"`
	CreatedAt  time.Time         `json:"CreatedAt"`
	Attributes map[string]string `json:"Attributes"`
	Failed     []failedEntry     `json:"Failed"`
	NextToken  *string           `json:"NextToken"`
}

type failedEntry struct {
	ID   string `json:"Id"`
	Code string `json:"Code"`
}

func TestUnmarshalRoot(t *testing.T) {
	raw := []byte(`{
		"QueueUrl": "https://api.cloudmere.dev/queues/jobs",
		"CreatedAt": "2024-05-01T11:00:00Z",
		"Attributes": {"VisibilityTimeout": "30"},
		"Failed": [{"Id": "1", "Code": "Throttled"}],
		"NextToken": "tok",
		"Unknown": "ignored"
	}`)

	var res queueResult
	require.NoError(t, UnmarshalRoot(raw, &res))
	require.Equal(t, "https://api.cloudmere.dev/queues/jobs", res.QueueURL)
	require.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), res.CreatedAt)
	require.Equal(t, map[string]string{"VisibilityTimeout": "30"}, res.Attributes)
	require.Equal(t, []failedEntry{{ID: "1", Code: "Throttled"}}, res.Failed)
	require.NotNil(t, res.NextToken)
	require.Equal(t, "tok", *res.NextToken)
}

func TestUnmarshalRoot_MissingAndNull(t *testing.T) {
	var res queueResult
	require.NoError(t, UnmarshalRoot([]byte(`{"NextToken": null}`), &res))
	require.Nil(t, res.NextToken)
	require.Empty(t, res.QueueURL)
}

func TestUnmarshalRoot_BadTarget(t *testing.T) {
	var res queueResult
	require.Error(t, UnmarshalRoot([]byte(`{}`), res))
}

func TestUnmarshalRoot_BadTimestamp(t *testing.T) {
	var res queueResult
	require.Error(t, UnmarshalRoot([]byte(`{"CreatedAt": "yesterday"}`), &res))
}

func TestMarshalRoot(t *testing.T) {
	type params struct {
		Name    string `json:"Name"`
		Count   int    `json:"Count,omitempty"`
		Skipped string `json:"-"`
	}

	out, err := MarshalRoot(params{Name: "jobs", Skipped: "x"})
	require.NoError(t, err)
	require.JSONEq(t, `{"Name":"jobs"}`, string(out))

	out, err = MarshalRoot(&params{Name: "jobs", Count: 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"Name":"jobs","Count":2}`, string(out))
}
