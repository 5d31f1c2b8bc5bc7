// Package httputil provides the transport plumbing of the zone API client.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only for
// errors wrapped with [Retryable]. [RetryableStatus] decides which HTTP
// status codes count as transient (5xx and 429):
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// # Last-known-good cache
//
// [Cache] keeps the last successful response of each endpoint on disk
// (~/.cache/zonemap/http/ by default). Fresh entries are served by
// [Cache.Get]; when the API is unreachable the client falls back to
// [Cache.GetStale], which ignores the TTL, so the treemap keeps showing the
// last zone set instead of going blank.
package httputil
