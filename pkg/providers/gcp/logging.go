package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	glogging "google.golang.org/api/logging/v2"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

const defaultReadLimit = 100

// Logging implements cloudjack.Logging on Cloud Logging. Log names are
// created implicitly on first write, so CreateLogGroup only materializes
// a routing sink when a destination is given.
type Logging struct {
	svc     *glogging.Service
	project string
	wrap    errorWrapper
}

var _ cloudjack.Logging = (*Logging)(nil)

// NewLogging builds the Cloud Logging adapter.
func NewLogging(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*Logging, error) {
	svc, err := glogging.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating logging client",
			Cause:    err,
		}
	}
	return &Logging{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    newErrorWrapper(cloudjack.ServiceLogging),
	}, nil
}

func (l *Logging) parent() string {
	return "projects/" + l.project
}

func (l *Logging) logPath(group string) string {
	return l.parent() + "/logs/" + url.PathEscape(group)
}

func (l *Logging) CreateLogGroup(ctx context.Context, name string, opts cloudjack.LogGroupOptions) error {
	if opts.Destination == "" {
		return nil
	}
	sink := &glogging.LogSink{
		Name:        name,
		Destination: opts.Destination,
		Filter:      fmt.Sprintf("logName=%q", l.logPath(name)),
	}
	_, err := l.svc.Projects.Sinks.Create(l.parent(), sink).Context(ctx).Do()
	return l.wrap.wrap(err, "CreateSink", name)
}

// DeleteLogGroup removes the stored entries for a log name, plus any sink
// CreateLogGroup made for it.
func (l *Logging) DeleteLogGroup(ctx context.Context, name string) error {
	_, err := l.svc.Projects.Sinks.Delete(l.parent() + "/sinks/" + name).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return l.wrap.wrap(err, "DeleteSink", name)
	}
	if _, err := l.svc.Projects.Logs.Delete(l.logPath(name)).Context(ctx).Do(); err != nil {
		return l.wrap.wrap(err, "DeleteLog", name)
	}
	return nil
}

func (l *Logging) ListLogGroups(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := l.svc.Projects.Logs.List(l.parent()).Pages(ctx, func(resp *glogging.ListLogsResponse) error {
		for _, logName := range resp.LogNames {
			name := shortName(logName)
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
			if prefix == "" || strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, l.wrap.wrap(err, "ListLogs", "")
	}
	return names, nil
}

func (l *Logging) WriteLog(ctx context.Context, group, message, severity string) error {
	severity = strings.ToUpper(severity)
	if severity == "" {
		severity = "INFO"
	}
	req := &glogging.WriteLogEntriesRequest{
		LogName:  l.logPath(group),
		Resource: &glogging.MonitoredResource{Type: "global"},
		Entries: []*glogging.LogEntry{{
			TextPayload: message,
			Severity:    severity,
		}},
	}
	_, err := l.svc.Entries.Write(req).Context(ctx).Do()
	return l.wrap.wrap(err, "WriteEntries", group)
}

// ReadLogs queries entries for a log name, newest last.
func (l *Logging) ReadLogs(ctx context.Context, group string, opts cloudjack.ReadLogsOptions) ([]cloudjack.LogEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	filter := []string{fmt.Sprintf("logName=%q", l.logPath(group))}
	if !opts.Start.IsZero() {
		filter = append(filter, fmt.Sprintf("timestamp>=%q", opts.Start.UTC().Format(time.RFC3339)))
	}
	if !opts.End.IsZero() {
		filter = append(filter, fmt.Sprintf("timestamp<=%q", opts.End.UTC().Format(time.RFC3339)))
	}
	if opts.Filter != "" {
		filter = append(filter, opts.Filter)
	}
	req := &glogging.ListLogEntriesRequest{
		ResourceNames: []string{l.parent()},
		Filter:        strings.Join(filter, " AND "),
		OrderBy:       "timestamp desc",
		PageSize:      int64(limit),
	}

	errEnough := errors.New("enough entries")
	var entries []cloudjack.LogEntry
	err := l.svc.Entries.List(req).Pages(ctx, func(resp *glogging.ListLogEntriesResponse) error {
		for _, entry := range resp.Entries {
			entries = append(entries, toLogEntry(entry))
			if len(entries) >= int(limit) {
				return errEnough
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnough) {
		return nil, l.wrap.wrap(err, "ListEntries", group)
	}

	// The query runs newest first for the limit to mean "most recent";
	// flip so callers read in chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func toLogEntry(entry *glogging.LogEntry) cloudjack.LogEntry {
	out := cloudjack.LogEntry{
		Message:  entry.TextPayload,
		Severity: entry.Severity,
		Stream:   shortName(entry.LogName),
	}
	if t, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err == nil {
		out.Timestamp = t
	}
	return out
}
