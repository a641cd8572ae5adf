// Package telemetry wires the coordinator's structured logging and
// Prometheus metrics. Logger construction and call-site field usage
// (zap.String/zap.Error/zap.Duration) follow dustMason-redisbetween's
// proxy, which is the only file in the retrieval pack using zap
// end-to-end; the metrics registry and its background HTTP server follow
// the Adithya stack's metrics.New/StartServer pattern.
package telemetry
