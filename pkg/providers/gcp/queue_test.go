package gcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

func newTestQueue(t *testing.T, handler http.Handler) *Queue {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	q, err := NewQueue(context.Background(), cloudjack.GCPConfig{ProjectID: testProject},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return q
}

func TestCreateQueueMakesTopicAndSubscription(t *testing.T) {
	var subscription struct {
		Topic              string `json:"topic"`
		AckDeadlineSeconds int64  `json:"ackDeadlineSeconds"`
	}
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/projects/test-project/topics/orders":
			require.Equal(t, http.MethodPut, r.Method)
			writeJSON(t, w, http.StatusOK, map[string]any{"name": "projects/test-project/topics/orders"})
		case "/v1/projects/test-project/subscriptions/orders-sub":
			require.Equal(t, http.MethodPut, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&subscription))
			writeJSON(t, w, http.StatusOK, map[string]any{"name": "projects/test-project/subscriptions/orders-sub"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	id, err := q.CreateQueue(context.Background(), "orders", cloudjack.QueueOptions{
		VisibilityTimeout: 45 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/test-project/subscriptions/orders-sub", id)
	assert.Equal(t, "projects/test-project/topics/orders", subscription.Topic)
	assert.Equal(t, int64(45), subscription.AckDeadlineSeconds)
}

func TestCreateQueueKeepsDefaultAckDeadline(t *testing.T) {
	var body map[string]any
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/projects/test-project/subscriptions/orders-sub" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}))

	_, err := q.CreateQueue(context.Background(), "orders", cloudjack.QueueOptions{})
	require.NoError(t, err)
	assert.NotContains(t, body, "ackDeadlineSeconds")
}

func TestDeleteQueueToleratesMissingSubscription(t *testing.T) {
	var topicDeleted bool
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/projects/test-project/subscriptions/orders-sub":
			writeAPIError(t, w, http.StatusNotFound, "subscription not found")
		case "/v1/projects/test-project/topics/orders":
			require.Equal(t, http.MethodDelete, r.Method)
			topicDeleted = true
			writeJSON(t, w, http.StatusOK, map[string]any{})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, q.DeleteQueue(context.Background(), "orders"))
	assert.True(t, topicDeleted)
}

func TestSendMessageEncodesBodyAndAttributes(t *testing.T) {
	var publish struct {
		Messages []struct {
			Data       string            `json:"data"`
			Attributes map[string]string `json:"attributes"`
		} `json:"messages"`
	}
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/topics/orders:publish", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&publish))
		writeJSON(t, w, http.StatusOK, map[string]any{"messageIds": []string{"7"}})
	}))

	id, err := q.SendMessage(context.Background(), "orders", "hello", map[string]string{"kind": "greeting"})
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	require.Len(t, publish.Messages, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), publish.Messages[0].Data)
	assert.Equal(t, "greeting", publish.Messages[0].Attributes["kind"])
}

func TestSendMessageFailureIsMessageKind(t *testing.T) {
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(t, w, http.StatusInternalServerError, "backend unavailable")
	}))

	_, err := q.SendMessage(context.Background(), "orders", "hello", nil)
	var cjErr *cloudjack.Error
	require.ErrorAs(t, err, &cjErr)
	assert.Equal(t, cloudjack.KindMessage, cjErr.Kind)
}

func TestReceiveMessagesDecodesAndDefaults(t *testing.T) {
	var pull struct {
		MaxMessages int64 `json:"maxMessages"`
	}
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/subscriptions/orders-sub:pull", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pull))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"receivedMessages": []map[string]any{{
				"ackId": "ack-1",
				"message": map[string]any{
					"data":      base64.StdEncoding.EncodeToString([]byte("hello")),
					"messageId": "m-1",
				},
			}},
		})
	}))

	messages, err := q.ReceiveMessages(context.Background(), "orders", cloudjack.ReceiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pull.MaxMessages)
	require.Len(t, messages, 1)
	assert.Equal(t, cloudjack.Message{ID: "m-1", Body: "hello", Receipt: "ack-1"}, messages[0])
}

func TestDeleteMessageAcknowledges(t *testing.T) {
	var ack struct {
		AckIds []string `json:"ackIds"`
	}
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/subscriptions/orders-sub:acknowledge", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ack))
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}))

	require.NoError(t, q.DeleteMessage(context.Background(), "orders", "ack-1"))
	assert.Equal(t, []string{"ack-1"}, ack.AckIds)
}

func TestListQueuesFiltersByPrefix(t *testing.T) {
	q := newTestQueue(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/topics", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"topics": []map[string]any{
				{"name": "projects/test-project/topics/orders"},
				{"name": "projects/test-project/topics/order-errors"},
				{"name": "projects/test-project/topics/billing"},
			},
		})
	}))

	names, err := q.ListQueues(context.Background(), "order")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "order-errors"}, names)
}
