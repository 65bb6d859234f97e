package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Per-service tables mapping AWS error codes to portable kinds. Codes absent
// from a table fall through to the wrapper's default kind.
var (
	secretErrorKinds = map[string]cloudjack.ErrorKind{
		"ResourceNotFoundException": cloudjack.KindNotFound,
		"ResourceExistsException":   cloudjack.KindAlreadyExists,
	}

	storageErrorKinds = map[string]cloudjack.ErrorKind{
		"NoSuchBucket":            cloudjack.KindNotFound,
		"NoSuchKey":               cloudjack.KindNotFound,
		"NotFound":                cloudjack.KindNotFound,
		"BucketAlreadyExists":     cloudjack.KindAlreadyExists,
		"BucketAlreadyOwnedByYou": cloudjack.KindAlreadyExists,
	}

	queueErrorKinds = map[string]cloudjack.ErrorKind{
		"AWS.SimpleQueueService.NonExistentQueue":     cloudjack.KindNotFound,
		"QueueDoesNotExist":                           cloudjack.KindNotFound,
		"AWS.SimpleQueueService.QueueDeletedRecently": cloudjack.KindGeneric,
		"QueueAlreadyExists":                          cloudjack.KindAlreadyExists,
	}

	computeErrorKinds = map[string]cloudjack.ErrorKind{
		"InvalidInstanceID.NotFound":  cloudjack.KindNotFound,
		"InvalidInstanceID.Malformed": cloudjack.KindNotFound,
	}

	dnsErrorKinds = map[string]cloudjack.ErrorKind{
		"NoSuchHostedZone":        cloudjack.KindNotFound,
		"HostedZoneAlreadyExists": cloudjack.KindAlreadyExists,
	}

	iamErrorKinds = map[string]cloudjack.ErrorKind{
		"NoSuchEntity":        cloudjack.KindNotFound,
		"EntityAlreadyExists": cloudjack.KindAlreadyExists,
		"DeleteConflict":      cloudjack.KindGeneric,
	}

	loggingErrorKinds = map[string]cloudjack.ErrorKind{
		"ResourceNotFoundException":      cloudjack.KindNotFound,
		"ResourceAlreadyExistsException": cloudjack.KindAlreadyExists,
	}
)

// errorWrapper normalizes SDK failures for one service using its code table.
type errorWrapper struct {
	service     cloudjack.Service
	kinds       map[string]cloudjack.ErrorKind
	defaultKind cloudjack.ErrorKind
}

func newErrorWrapper(service cloudjack.Service, kinds map[string]cloudjack.ErrorKind) errorWrapper {
	return errorWrapper{service: service, kinds: kinds, defaultKind: cloudjack.KindGeneric}
}

// wrap classifies err and attaches operation context. nil passes through.
func (w errorWrapper) wrap(err error, op, resource string) error {
	if err == nil {
		return nil
	}
	kind := w.defaultKind
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if mapped, ok := w.kinds[apiErr.ErrorCode()]; ok {
			kind = mapped
		}
	}
	return cloudjack.NewError(w.service, kind, kindMessage(kind, op, resource)).
		WithProvider(cloudjack.ProviderAWS).
		WithOp(op).
		WithResource(resource).
		WithCause(err)
}

func kindMessage(kind cloudjack.ErrorKind, op, resource string) string {
	switch kind {
	case cloudjack.KindNotFound:
		return fmt.Sprintf("%s not found", resource)
	case cloudjack.KindAlreadyExists:
		return fmt.Sprintf("%s already exists", resource)
	case cloudjack.KindMessage:
		return fmt.Sprintf("%s failed", op)
	default:
		return fmt.Sprintf("%s failed", op)
	}
}
