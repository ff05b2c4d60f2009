// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package retry

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 5 * time.Second
)

// HTTPOptions configures transport-level retries.
type HTTPOptions struct {
	RetryMax int

	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// WrapHTTPClient wraps the client with a retrying transport. Only transport
// failures and 429/5xx responses are retried; item-level bulk errors are
// handled by the bulk indexer, not here.
func WrapHTTPClient(client *http.Client, opts HTTPOptions) *http.Client {
	if opts.RetryMax <= 0 {
		return client
	}
	retryWaitMin := opts.RetryWaitMin
	if retryWaitMin == 0 {
		retryWaitMin = defaultRetryWaitMin
	}
	retryWaitMax := opts.RetryWaitMax
	if retryWaitMax == 0 {
		retryWaitMax = defaultRetryWaitMax
	}

	if client == nil {
		client = &http.Client{}
	}
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = client
	retryClient.Logger = nil
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	return retryClient.StandardClient()
}

// checkRetry reimplements retryablehttp.DefaultRetryPolicy with better error checking.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		var urlError *url.Error
		if errors.As(err, &urlError) && !urlError.Temporary() {
			// URL is invalid or the failure is permanent, not recoverable.
			return false, nil
		}

		// Consider other errors as recoverable.
		return true, nil
	}

	// 429 Too Many Requests is recoverable, the engine throttles bulk
	// traffic with it.
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	// Retry on 500-range responses to allow the engine time to recover.
	if resp.StatusCode == 0 || (resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented) {
		return true, err
	}

	return false, nil
}
