// Package retry runs operations until they succeed, backing off between
// attempts.
//
// The geo-search uses a ConstantBackoff with an unlimited attempt budget to
// ride out vendor throttling; media downloads use a short exponential
// backoff.
//
//	err := retry.Do(func() error {
//		return fetch(ctx)
//	}, &retry.Config{
//		MaxAttempts: 0,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Minute},
//		RetryIf:     isTransient,
//		Context:     ctx,
//	})
//
// Waiting honors the context, so cancelling it ends the loop promptly with
// the context error wrapped.
package retry
