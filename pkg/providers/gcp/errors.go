package gcp

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// statusKinds maps googleapi HTTP statuses to portable kinds. Unlike AWS,
// GCP APIs signal resource state through status codes rather than error
// code strings, so one table covers every service.
var statusKinds = map[int]cloudjack.ErrorKind{
	http.StatusNotFound: cloudjack.KindNotFound,
	http.StatusConflict: cloudjack.KindAlreadyExists,
}

// errorWrapper normalizes googleapi failures for one service.
type errorWrapper struct {
	service     cloudjack.Service
	defaultKind cloudjack.ErrorKind
}

func newErrorWrapper(service cloudjack.Service) errorWrapper {
	return errorWrapper{service: service, defaultKind: cloudjack.KindGeneric}
}

// wrap classifies err and attaches operation context. nil passes through.
func (w errorWrapper) wrap(err error, op, resource string) error {
	if err == nil {
		return nil
	}
	kind := w.defaultKind
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if mapped, ok := statusKinds[apiErr.Code]; ok {
			kind = mapped
		}
	}
	return cloudjack.NewError(w.service, kind, kindMessage(kind, op, resource)).
		WithProvider(cloudjack.ProviderGCP).
		WithOp(op).
		WithResource(resource).
		WithCause(err)
}

// isNotFound reports a bare 404 without wrapping, for spots where a missing
// resource is tolerated.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func kindMessage(kind cloudjack.ErrorKind, op, resource string) string {
	switch kind {
	case cloudjack.KindNotFound:
		return fmt.Sprintf("%s not found", resource)
	case cloudjack.KindAlreadyExists:
		return fmt.Sprintf("%s already exists", resource)
	default:
		return fmt.Sprintf("%s failed", op)
	}
}
