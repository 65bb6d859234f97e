package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Log entries are written to one shared stream per group.
const defaultLogStream = "default"

const defaultReadLimit = 100

// cwlAPI is the slice of the CloudWatch Logs client this adapter uses.
type cwlAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	DeleteLogGroup(ctx context.Context, params *cloudwatchlogs.DeleteLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteLogGroupOutput, error)
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// Logging implements cloudjack.Logging on CloudWatch Logs. The severity of
// each entry is encoded into the message as an "[INFO] ..." prefix, since
// CloudWatch events carry no severity field of their own.
type Logging struct {
	client cwlAPI
	wrap   errorWrapper
}

var _ cloudjack.Logging = (*Logging)(nil)

// NewLogging builds the CloudWatch Logs adapter.
func NewLogging(cfg awssdk.Config) *Logging {
	return &Logging{
		client: cloudwatchlogs.NewFromConfig(cfg),
		wrap:   newErrorWrapper(cloudjack.ServiceLogging, loggingErrorKinds),
	}
}

func (l *Logging) CreateLogGroup(ctx context.Context, name string, opts cloudjack.LogGroupOptions) error {
	_, err := l.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: awssdk.String(name),
	})
	if err != nil {
		return l.wrap.wrap(err, "CreateLogGroup", name)
	}
	if opts.RetentionDays > 0 {
		_, err = l.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
			LogGroupName:    awssdk.String(name),
			RetentionInDays: awssdk.Int32(opts.RetentionDays),
		})
		if err != nil {
			return l.wrap.wrap(err, "PutRetentionPolicy", name)
		}
	}
	return nil
}

func (l *Logging) DeleteLogGroup(ctx context.Context, name string) error {
	_, err := l.client.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
		LogGroupName: awssdk.String(name),
	})
	return l.wrap.wrap(err, "DeleteLogGroup", name)
}

func (l *Logging) ListLogGroups(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	input := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix != "" {
		input.LogGroupNamePrefix = awssdk.String(prefix)
	}
	for {
		out, err := l.client.DescribeLogGroups(ctx, input)
		if err != nil {
			return nil, l.wrap.wrap(err, "DescribeLogGroups", "")
		}
		for _, group := range out.LogGroups {
			names = append(names, awssdk.ToString(group.LogGroupName))
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}
	return names, nil
}

func (l *Logging) WriteLog(ctx context.Context, group, message, severity string) error {
	if err := l.ensureStream(ctx, group); err != nil {
		return err
	}
	if severity == "" {
		severity = "INFO"
	}
	_, err := l.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  awssdk.String(group),
		LogStreamName: awssdk.String(defaultLogStream),
		LogEvents: []cwltypes.InputLogEvent{{
			Message:   awssdk.String(fmt.Sprintf("[%s] %s", strings.ToUpper(severity), message)),
			Timestamp: awssdk.Int64(time.Now().UnixMilli()),
		}},
	})
	return l.wrap.wrap(err, "PutLogEvents", group)
}

func (l *Logging) ReadLogs(ctx context.Context, group string, opts cloudjack.ReadLogsOptions) ([]cloudjack.LogEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: awssdk.String(group),
		Limit:        awssdk.Int32(limit),
	}
	if !opts.Start.IsZero() {
		input.StartTime = awssdk.Int64(opts.Start.UnixMilli())
	}
	if !opts.End.IsZero() {
		input.EndTime = awssdk.Int64(opts.End.UnixMilli())
	}
	if opts.Filter != "" {
		input.FilterPattern = awssdk.String(opts.Filter)
	}

	out, err := l.client.FilterLogEvents(ctx, input)
	if err != nil {
		return nil, l.wrap.wrap(err, "FilterLogEvents", group)
	}
	entries := make([]cloudjack.LogEntry, 0, len(out.Events))
	for _, event := range out.Events {
		severity, message := splitSeverity(awssdk.ToString(event.Message))
		entries = append(entries, cloudjack.LogEntry{
			Timestamp: time.UnixMilli(awssdk.ToInt64(event.Timestamp)),
			Message:   message,
			Severity:  severity,
			Stream:    awssdk.ToString(event.LogStreamName),
		})
	}
	return entries, nil
}

// ensureStream creates the shared stream, tolerating a previous creation.
func (l *Logging) ensureStream(ctx context.Context, group string) error {
	_, err := l.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  awssdk.String(group),
		LogStreamName: awssdk.String(defaultLogStream),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceAlreadyExistsException" {
			return nil
		}
		return l.wrap.wrap(err, "CreateLogStream", group)
	}
	return nil
}

// splitSeverity undoes the "[SEVERITY] message" encoding applied by
// WriteLog. Messages without the prefix come back with severity INFO.
func splitSeverity(raw string) (severity, message string) {
	if strings.HasPrefix(raw, "[") {
		if end := strings.Index(raw, "] "); end > 1 {
			return raw[1:end], raw[end+2:]
		}
	}
	return "INFO", raw
}
