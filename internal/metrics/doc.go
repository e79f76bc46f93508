// Package metrics records page and run metrics for sitehead.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so callers never nil-check:
//
//	p := pipeline.New(reg, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// When metrics are enabled the CLI builds a PrometheusRecorder on a private
// registry and serves it with HTTPHandler, either on the serve router at
// /metrics or on a standalone listener for inject and watch.
package metrics
