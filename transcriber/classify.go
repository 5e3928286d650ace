package transcriber

import (
	"context"
	"errors"
	"net"
	"net/url"

	"dikt/pipeline"
)

// classify maps a provider failure onto the pipeline's error taxonomy. The
// credential and unknown-provider cases never reach here; the dispatcher
// short-circuits them before any provider call.
func classify(err error) *pipeline.ClassifiedError {
	if err == nil {
		return nil
	}

	var api *apiError
	if errors.As(err, &api) {
		// The provider answered. 401/403 means the key itself is bad.
		if api.status == 401 || api.status == 403 {
			return pipeline.Classified(pipeline.KindNoCredential, err)
		}
		return pipeline.Classified(pipeline.KindProviderError, err)
	}

	if isNetworkError(err) {
		return pipeline.Classified(pipeline.KindNetworkUnreachable, err)
	}

	// Anything else (malformed response body, SDK internals) cannot be
	// attributed: the provider never answered with a status we can blame.
	return pipeline.Classified(pipeline.KindUnknownProvider, err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || errors.Is(urlErr.Err, context.DeadlineExceeded)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
