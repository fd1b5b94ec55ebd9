// Package httputil provides HTTP utilities for the registry client.
//
// # Retry
//
// [Retry] wraps registry requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//
// Callers mark an error as transient by wrapping it with [Retryable]. Anything
// else (404, malformed JSON) is returned on the first attempt:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// The delay doubles after each failure and waiting stops when ctx is done.
//
// Tarball downloads are deliberately not routed through Retry; a failed
// download aborts the install of that subtree.
package httputil
