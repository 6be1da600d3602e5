// Package telemetry installs OpenTelemetry tracing for a crawl.
//
// Spans are exported over OTLP/HTTP to the endpoint given on the command
// line. Without an endpoint no provider is created and session spans stay
// no-ops.
package telemetry
