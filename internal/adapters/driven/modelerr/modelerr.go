// Package modelerr classifies failures of HTTP model services.
//
// A service that cannot be reached at all is fatal for a stage run and is
// reported as domain.ErrModelUnavailable. Timeouts, rejected inputs and
// malformed responses fail only the item being processed.
package modelerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// maxBodyExcerpt bounds the response body quoted in errors.
const maxBodyExcerpt = 200

// Transport classifies an error returned by http.Client.Do.
func Transport(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isTimeout(err) {
		return fmt.Errorf("%s: request timed out: %w", service, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrModelUnavailable, service, err)
}

// Status classifies a non-2xx response. Gateway and availability failures
// mean the service is down; anything else rejects only this request.
func Status(service string, code int, body []byte) error {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > maxBodyExcerpt {
		excerpt = excerpt[:maxBodyExcerpt] + "..."
	}
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusNotFound:
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrModelUnavailable, service, code, excerpt)
	default:
		return fmt.Errorf("%s returned status %d: %s", service, code, excerpt)
	}
}

// Output wraps a response that decoded to the wrong shape.
func Output(service string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrUnexpectedOutput, service, fmt.Sprintf(format, args...))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
