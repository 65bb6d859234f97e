package aws

import (
	"context"
	"strconv"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// SQS allows at most 10 messages per receive call.
const maxReceiveBatch = 10

// sqsAPI is the slice of the SQS client this adapter uses.
type sqsAPI interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	DeleteQueue(ctx context.Context, params *sqs.DeleteQueueInput, optFns ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error)
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Queue implements cloudjack.Queue on SQS. Queues are addressed by name;
// the URL SQS wants is resolved per operation.
type Queue struct {
	client  sqsAPI
	wrap    errorWrapper
	wrapMsg errorWrapper
}

var _ cloudjack.Queue = (*Queue)(nil)

// NewQueue builds the SQS adapter.
func NewQueue(cfg awssdk.Config) *Queue {
	return &Queue{
		client: sqs.NewFromConfig(cfg),
		wrap:   newErrorWrapper(cloudjack.ServiceQueue, queueErrorKinds),
		// Message-level operations classify unmapped failures as message
		// errors rather than generic ones.
		wrapMsg: errorWrapper{
			service:     cloudjack.ServiceQueue,
			kinds:       queueErrorKinds,
			defaultKind: cloudjack.KindMessage,
		},
	}
}

func (q *Queue) CreateQueue(ctx context.Context, name string, opts cloudjack.QueueOptions) (string, error) {
	attributes := map[string]string{}
	if opts.VisibilityTimeout > 0 {
		attributes["VisibilityTimeout"] = strconv.Itoa(int(opts.VisibilityTimeout.Seconds()))
	}
	if opts.DelaySeconds > 0 {
		attributes["DelaySeconds"] = strconv.Itoa(int(opts.DelaySeconds))
	}

	input := &sqs.CreateQueueInput{QueueName: awssdk.String(name)}
	if len(attributes) > 0 {
		input.Attributes = attributes
	}
	out, err := q.client.CreateQueue(ctx, input)
	if err != nil {
		return "", q.wrap.wrap(err, "CreateQueue", name)
	}
	return awssdk.ToString(out.QueueUrl), nil
}

func (q *Queue) DeleteQueue(ctx context.Context, name string) error {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return err
	}
	_, err = q.client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: awssdk.String(url)})
	return q.wrap.wrap(err, "DeleteQueue", name)
}

func (q *Queue) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	input := &sqs.ListQueuesInput{}
	if prefix != "" {
		input.QueueNamePrefix = awssdk.String(prefix)
	}
	var names []string
	for {
		out, err := q.client.ListQueues(ctx, input)
		if err != nil {
			return nil, q.wrap.wrap(err, "ListQueues", "")
		}
		for _, url := range out.QueueUrls {
			names = append(names, queueNameFromURL(url))
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}
	return names, nil
}

func (q *Queue) SendMessage(ctx context.Context, name, body string, attributes map[string]string) (string, error) {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return "", err
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    awssdk.String(url),
		MessageBody: awssdk.String(body),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = toMessageAttributes(attributes)
	}
	out, err := q.client.SendMessage(ctx, input)
	if err != nil {
		return "", q.wrapMsg.wrap(err, "SendMessage", name)
	}
	return awssdk.ToString(out.MessageId), nil
}

func (q *Queue) ReceiveMessages(ctx context.Context, name string, opts cloudjack.ReceiveOptions) ([]cloudjack.Message, error) {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return nil, err
	}

	max := opts.MaxMessages
	if max <= 0 {
		max = 1
	}
	if max > maxReceiveBatch {
		max = maxReceiveBatch
	}
	input := &sqs.ReceiveMessageInput{
		QueueUrl:            awssdk.String(url),
		MaxNumberOfMessages: max,
	}
	if opts.WaitTime > 0 {
		input.WaitTimeSeconds = int32(opts.WaitTime.Seconds())
	}

	out, err := q.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, q.wrapMsg.wrap(err, "ReceiveMessage", name)
	}
	messages := make([]cloudjack.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, cloudjack.Message{
			ID:      awssdk.ToString(m.MessageId),
			Body:    awssdk.ToString(m.Body),
			Receipt: awssdk.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

func (q *Queue) DeleteMessage(ctx context.Context, name, receipt string) error {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return err
	}
	_, err = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      awssdk.String(url),
		ReceiptHandle: awssdk.String(receipt),
	})
	return q.wrapMsg.wrap(err, "DeleteMessage", name)
}

func (q *Queue) queueURL(ctx context.Context, name string) (string, error) {
	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: awssdk.String(name)})
	if err != nil {
		return "", q.wrap.wrap(err, "GetQueueUrl", name)
	}
	return awssdk.ToString(out.QueueUrl), nil
}

func toMessageAttributes(attributes map[string]string) map[string]sqstypes.MessageAttributeValue {
	out := make(map[string]sqstypes.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		out[k] = sqstypes.MessageAttributeValue{
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String(v),
		}
	}
	return out
}

func queueNameFromURL(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
