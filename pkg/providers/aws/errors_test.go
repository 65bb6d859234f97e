package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestErrorTableMappings(t *testing.T) {
	tests := []struct {
		table map[string]cloudjack.ErrorKind
		code  string
		kind  cloudjack.ErrorKind
	}{
		{secretErrorKinds, "ResourceNotFoundException", cloudjack.KindNotFound},
		{secretErrorKinds, "ResourceExistsException", cloudjack.KindAlreadyExists},
		{storageErrorKinds, "NoSuchBucket", cloudjack.KindNotFound},
		{storageErrorKinds, "NoSuchKey", cloudjack.KindNotFound},
		{storageErrorKinds, "NotFound", cloudjack.KindNotFound},
		{storageErrorKinds, "BucketAlreadyExists", cloudjack.KindAlreadyExists},
		{storageErrorKinds, "BucketAlreadyOwnedByYou", cloudjack.KindAlreadyExists},
		{queueErrorKinds, "AWS.SimpleQueueService.NonExistentQueue", cloudjack.KindNotFound},
		{queueErrorKinds, "QueueDoesNotExist", cloudjack.KindNotFound},
		{queueErrorKinds, "QueueAlreadyExists", cloudjack.KindAlreadyExists},
		{computeErrorKinds, "InvalidInstanceID.NotFound", cloudjack.KindNotFound},
		{computeErrorKinds, "InvalidInstanceID.Malformed", cloudjack.KindNotFound},
		{dnsErrorKinds, "NoSuchHostedZone", cloudjack.KindNotFound},
		{dnsErrorKinds, "HostedZoneAlreadyExists", cloudjack.KindAlreadyExists},
		{iamErrorKinds, "NoSuchEntity", cloudjack.KindNotFound},
		{iamErrorKinds, "EntityAlreadyExists", cloudjack.KindAlreadyExists},
		{iamErrorKinds, "DeleteConflict", cloudjack.KindGeneric},
		{loggingErrorKinds, "ResourceNotFoundException", cloudjack.KindNotFound},
		{loggingErrorKinds, "ResourceAlreadyExistsException", cloudjack.KindAlreadyExists},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.table[tc.code])
		})
	}
}

func TestWrapClassifiesAPIErrors(t *testing.T) {
	wrap := newErrorWrapper(cloudjack.ServiceStorage, storageErrorKinds)

	err := wrap.wrap(apiError("NoSuchBucket"), "DeleteBucket", "my-bucket")
	var cjErr *cloudjack.Error
	require.ErrorAs(t, err, &cjErr)
	assert.Equal(t, cloudjack.KindNotFound, cjErr.Kind)
	assert.Equal(t, cloudjack.ServiceStorage, cjErr.Service)
	assert.Equal(t, cloudjack.ProviderAWS, cjErr.Provider)
	assert.Equal(t, "DeleteBucket", cjErr.Op)
	assert.Equal(t, "my-bucket", cjErr.Resource)
	assert.True(t, cloudjack.IsNotFound(err))
}

func TestWrapUnknownCodeFallsBackToGeneric(t *testing.T) {
	wrap := newErrorWrapper(cloudjack.ServiceStorage, storageErrorKinds)

	err := wrap.wrap(apiError("SlowDown"), "PutObject", "b/k")
	var cjErr *cloudjack.Error
	require.ErrorAs(t, err, &cjErr)
	assert.Equal(t, cloudjack.KindGeneric, cjErr.Kind)
}

func TestWrapNonAPIError(t *testing.T) {
	wrap := newErrorWrapper(cloudjack.ServiceCompute, computeErrorKinds)

	cause := errors.New("dial tcp: connection refused")
	err := wrap.wrap(cause, "RunInstances", "")
	var cjErr *cloudjack.Error
	require.ErrorAs(t, err, &cjErr)
	assert.Equal(t, cloudjack.KindGeneric, cjErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestWrapPreservesWrappedAPIError(t *testing.T) {
	wrap := newErrorWrapper(cloudjack.ServiceDNS, dnsErrorKinds)

	inner := fmt.Errorf("operation error Route 53: %w", apiError("NoSuchHostedZone"))
	err := wrap.wrap(inner, "DeleteHostedZone", "Z123")
	assert.True(t, cloudjack.IsNotFound(err))
}

func TestWrapNilPassesThrough(t *testing.T) {
	wrap := newErrorWrapper(cloudjack.ServiceIAM, iamErrorKinds)
	assert.NoError(t, wrap.wrap(nil, "CreateRole", "r"))
}

func TestMessageOpsDefaultToMessageKind(t *testing.T) {
	q := &Queue{
		wrap: newErrorWrapper(cloudjack.ServiceQueue, queueErrorKinds),
		wrapMsg: errorWrapper{
			service:     cloudjack.ServiceQueue,
			kinds:       queueErrorKinds,
			defaultKind: cloudjack.KindMessage,
		},
	}

	// Unmapped failure on a message op is a message error.
	err := q.wrapMsg.wrap(apiError("InternalError"), "SendMessage", "jobs")
	var cjErr *cloudjack.Error
	require.ErrorAs(t, err, &cjErr)
	assert.Equal(t, cloudjack.KindMessage, cjErr.Kind)

	// A missing queue still surfaces as not-found.
	err = q.wrapMsg.wrap(apiError("AWS.SimpleQueueService.NonExistentQueue"), "SendMessage", "jobs")
	assert.True(t, cloudjack.IsNotFound(err))
}
