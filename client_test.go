package cloudmere_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudmere "github.com/cloudmere/cloudmere-go"
	"github.com/cloudmere/cloudmere-go/apierror"
	"github.com/cloudmere/cloudmere-go/internal/apiquery"
	"github.com/cloudmere/cloudmere-go/internal/signer"
	"github.com/cloudmere/cloudmere-go/option"
)

const (
	testAccessKey = "AKIDTEST"
	testSecretKey = "supersekrit"
)

// fakeService implements just enough of the Query endpoint to verify what
// the SDK puts on the wire.
type fakeService struct {
	t        *testing.T
	lastForm url.Values
}

func (f *fakeService) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/", f.handleAction)
	return r
}

func (f *fakeService) handleAction(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.lastForm = r.PostForm

	f.verifySignature(r)

	w.Header().Set("Content-Type", "application/json")
	switch r.PostForm.Get("Action") {
	case "CreateQueue":
		w.Write([]byte(`{"QueueUrl": "https://api.cloudmere.dev/queues/jobs", "CreatedAt": "2024-05-01T11:00:00Z"}`))
	case "SendMessageBatch":
		w.Write([]byte(`{"Successful": [{"Id": "a", "MessageId": "m-1"}], "Failed": []}`))
	case "DescribeStacks":
		w.Write([]byte(`{"Stacks": [{"StackName": "web", "Status": "CREATE_COMPLETE"}], "NextToken": null}`))
	case "TagStack":
		w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Error": {"Code": "InvalidAction", "Message": "unknown action"}, "RequestId": "req-42"}`))
	}
}

// verifySignature recomputes the HMAC over the canonical form of everything
// except the Signature argument, exactly as the service would.
func (f *fakeService) verifySignature(r *http.Request) {
	var args apiquery.Args
	for key, values := range r.PostForm {
		if key == "Signature" {
			continue
		}
		for _, value := range values {
			args = append(args, apiquery.Arg{Key: key, Value: value})
		}
	}
	assert.Equal(f.t, testAccessKey, r.PostForm.Get("AccessKeyId"))

	mac := hmac.New(sha256.New, []byte(testSecretKey))
	mac.Write([]byte(signer.StringToSign(http.MethodPost, r.Host, "/", args)))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(f.t, want, r.PostForm.Get("Signature"))
}

func newTestClient(t *testing.T) (*cloudmere.Client, *fakeService) {
	f := &fakeService{t: t}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client := cloudmere.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithCredentials(testAccessKey, testSecretKey),
		option.WithMaxRetries(0),
	)
	return client, f
}

func TestQueueCreate(t *testing.T) {
	client, f := newTestClient(t)

	res, err := client.Queue.Create(context.Background(), cloudmere.QueueCreateParams{
		QueueName:  "jobs",
		Attributes: map[string]string{"VisibilityTimeout": "30"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://api.cloudmere.dev/queues/jobs", res.QueueURL)
	require.Equal(t, 2024, res.CreatedAt.Year())

	require.Equal(t, "CreateQueue", f.lastForm.Get("Action"))
	require.Equal(t, "jobs", f.lastForm.Get("QueueName"))
	require.Equal(t, "30", f.lastForm.Get("VisibilityTimeout"))
	// Create is idempotent, so a ClientToken must be generated
	require.NotEmpty(t, f.lastForm.Get("ClientToken"))
}

func TestQueueCreate_MissingName(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.Queue.Create(context.Background(), cloudmere.QueueCreateParams{})
	require.ErrorIs(t, err, cloudmere.ErrMissingQueueName)
}

func TestQueueSendBatch(t *testing.T) {
	client, f := newTestClient(t)

	res, err := client.Queue.SendBatch(context.Background(), cloudmere.QueueSendBatchParams{
		QueueName: "jobs",
		Entries: []cloudmere.BatchEntry{
			{ID: "a", Body: "first message"},
			{ID: "b", Body: "second", DelaySeconds: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Successful, 1)
	require.Equal(t, "m-1", res.Successful[0].MessageID)

	require.Equal(t, "a", f.lastForm.Get("Entries.member.1.Id"))
	require.Equal(t, "first message", f.lastForm.Get("Entries.member.1.Body"))
	require.Equal(t, "b", f.lastForm.Get("Entries.member.2.Id"))
	require.Equal(t, "5", f.lastForm.Get("Entries.member.2.DelaySeconds"))
	// omitempty drops the zero delay of the first entry
	require.False(t, f.lastForm.Has("Entries.member.1.DelaySeconds"))
}

func TestQueueSendBatch_EmptyBatch(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.Queue.SendBatch(context.Background(), cloudmere.QueueSendBatchParams{QueueName: "jobs"})
	require.ErrorIs(t, err, cloudmere.ErrEmptyBatch)
}

func TestStackDescribe(t *testing.T) {
	client, f := newTestClient(t)

	res, err := client.Stack.Describe(context.Background(), cloudmere.StackDescribeParams{
		MaxResults: 10,
		Filters: []cloudmere.Filter{
			{Name: "status", Values: []string{"CREATE_COMPLETE", "UPDATE_COMPLETE"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Stacks, 1)
	require.Equal(t, "web", res.Stacks[0].StackName)
	require.Nil(t, res.NextToken)

	require.Equal(t, "status", f.lastForm.Get("Filters.member.1.Name"))
	require.Equal(t, "CREATE_COMPLETE", f.lastForm.Get("Filters.member.1.Values.member.1"))
	require.Equal(t, "UPDATE_COMPLETE", f.lastForm.Get("Filters.member.1.Values.member.2"))
	require.Equal(t, "10", f.lastForm.Get("MaxResults"))
}

func TestStackTag_FlattenedLists(t *testing.T) {
	client, f := newTestClient(t)

	err := client.Stack.Tag(context.Background(), cloudmere.StackTagParams{
		StackName: "web",
		Tags: []cloudmere.Tag{
			{Key: "env", Value: "prod"},
			{Key: "team", Value: "core"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, "env", f.lastForm.Get("Tags.1.Key"))
	require.Equal(t, "prod", f.lastForm.Get("Tags.1.Value"))
	require.Equal(t, "team", f.lastForm.Get("Tags.2.Key"))
	require.Equal(t, "core", f.lastForm.Get("Tags.2.Value"))
	require.False(t, f.lastForm.Has("Tags.member.1.Key"))
}

func TestExecute_UnknownActionFault(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Execute(context.Background(), "Frobnicate", nil, nil)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "InvalidAction", apiErr.Code)
	require.Equal(t, "req-42", apiErr.RequestID)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestRequestOptionsPerCall(t *testing.T) {
	client, f := newTestClient(t)

	_, err := client.Queue.Create(context.Background(),
		cloudmere.QueueCreateParams{QueueName: "jobs"},
		option.WithAPIVersion("2023-01-01"),
		option.WithIdempotencyToken("pinned"),
	)
	require.NoError(t, err)
	require.Equal(t, "2023-01-01", f.lastForm.Get("Version"))
	require.Equal(t, "pinned", f.lastForm.Get("ClientToken"))
}
