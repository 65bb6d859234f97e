package gcp

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/api/option"
	pubsub "google.golang.org/api/pubsub/v1"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Queue implements cloudjack.Queue on Pub/Sub. Each queue is a topic plus
// a pull subscription named "<queue>-sub"; the subscription is what
// receives and acknowledges messages.
type Queue struct {
	svc     *pubsub.Service
	project string
	wrap    errorWrapper
	wrapMsg errorWrapper
}

var _ cloudjack.Queue = (*Queue)(nil)

// NewQueue builds the Pub/Sub adapter.
func NewQueue(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*Queue, error) {
	svc, err := pubsub.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating pubsub client",
			Cause:    err,
		}
	}
	wrap := newErrorWrapper(cloudjack.ServiceQueue)
	wrapMsg := wrap
	wrapMsg.defaultKind = cloudjack.KindMessage
	return &Queue{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    wrap,
		wrapMsg: wrapMsg,
	}, nil
}

func (q *Queue) topicPath(name string) string {
	return "projects/" + q.project + "/topics/" + name
}

func (q *Queue) subscriptionPath(name string) string {
	return "projects/" + q.project + "/subscriptions/" + name + "-sub"
}

// CreateQueue creates the topic and its pull subscription and returns the
// subscription path.
func (q *Queue) CreateQueue(ctx context.Context, name string, opts cloudjack.QueueOptions) (string, error) {
	topicPath := q.topicPath(name)
	if _, err := q.svc.Projects.Topics.Create(topicPath, &pubsub.Topic{}).Context(ctx).Do(); err != nil {
		return "", q.wrap.wrap(err, "CreateTopic", name)
	}
	sub := &pubsub.Subscription{Topic: topicPath}
	if opts.VisibilityTimeout > 0 {
		sub.AckDeadlineSeconds = int64(opts.VisibilityTimeout.Seconds())
	}
	subPath := q.subscriptionPath(name)
	if _, err := q.svc.Projects.Subscriptions.Create(subPath, sub).Context(ctx).Do(); err != nil {
		return "", q.wrap.wrap(err, "CreateSubscription", name)
	}
	return subPath, nil
}

// DeleteQueue removes the subscription and the topic. A subscription that
// is already gone is tolerated so a half-deleted queue can be cleaned up.
func (q *Queue) DeleteQueue(ctx context.Context, name string) error {
	_, err := q.svc.Projects.Subscriptions.Delete(q.subscriptionPath(name)).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return q.wrap.wrap(err, "DeleteSubscription", name)
	}
	if _, err := q.svc.Projects.Topics.Delete(q.topicPath(name)).Context(ctx).Do(); err != nil {
		return q.wrap.wrap(err, "DeleteTopic", name)
	}
	return nil
}

func (q *Queue) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := q.svc.Projects.Topics.List("projects/"+q.project).Pages(ctx, func(resp *pubsub.ListTopicsResponse) error {
		for _, topic := range resp.Topics {
			name := shortName(topic.Name)
			if prefix == "" || strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, q.wrap.wrap(err, "ListTopics", "")
	}
	return names, nil
}

func (q *Queue) SendMessage(ctx context.Context, name, body string, attributes map[string]string) (string, error) {
	req := &pubsub.PublishRequest{
		Messages: []*pubsub.PubsubMessage{{
			Data:       base64.StdEncoding.EncodeToString([]byte(body)),
			Attributes: attributes,
		}},
	}
	resp, err := q.svc.Projects.Topics.Publish(q.topicPath(name), req).Context(ctx).Do()
	if err != nil {
		return "", q.wrapMsg.wrap(err, "Publish", name)
	}
	if len(resp.MessageIds) == 0 {
		return "", cloudjack.NewError(cloudjack.ServiceQueue, cloudjack.KindMessage,
			"publish returned no message ID").
			WithProvider(cloudjack.ProviderGCP).
			WithOp("Publish").
			WithResource(name)
	}
	return resp.MessageIds[0], nil
}

// ReceiveMessages pulls from the queue's subscription. The ack ID doubles
// as the receipt handle.
func (q *Queue) ReceiveMessages(ctx context.Context, name string, opts cloudjack.ReceiveOptions) ([]cloudjack.Message, error) {
	max := opts.MaxMessages
	if max < 1 {
		max = 1
	}
	resp, err := q.svc.Projects.Subscriptions.Pull(q.subscriptionPath(name), &pubsub.PullRequest{
		MaxMessages: int64(max),
	}).Context(ctx).Do()
	if err != nil {
		return nil, q.wrapMsg.wrap(err, "Pull", name)
	}
	messages := make([]cloudjack.Message, 0, len(resp.ReceivedMessages))
	for _, received := range resp.ReceivedMessages {
		if received.Message == nil {
			continue
		}
		body, err := base64.StdEncoding.DecodeString(received.Message.Data)
		if err != nil {
			return nil, q.wrapMsg.wrap(err, "Pull", name)
		}
		messages = append(messages, cloudjack.Message{
			ID:      received.Message.MessageId,
			Body:    string(body),
			Receipt: received.AckId,
		})
	}
	return messages, nil
}

func (q *Queue) DeleteMessage(ctx context.Context, name, receipt string) error {
	_, err := q.svc.Projects.Subscriptions.Acknowledge(q.subscriptionPath(name), &pubsub.AcknowledgeRequest{
		AckIds: []string{receipt},
	}).Context(ctx).Do()
	return q.wrapMsg.wrap(err, "Acknowledge", name)
}
