// Package telemetry wires zap logging and the OpenTelemetry providers the
// generator reports through. Exporters are selected by configuration: OTLP
// (gRPC or HTTP, inferred from the endpoint) and/or stdout.
package telemetry

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccreds "google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "payments-ingestion-txgen"
	serviceVersion = "1.0.0"

	defaultEndpoint = "localhost:4317"
)

// Config selects where telemetry goes and how the OTLP connection is secured.
type Config struct {
	Endpoint      string   `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure      bool     `yaml:"insecure" mapstructure:"insecure"`
	SkipTLSVerify bool     `yaml:"skip_tls_verify" mapstructure:"skip_tls_verify"`
	Outputs       []string `yaml:"outputs" mapstructure:"outputs"`
}

func (c Config) wantOTLP() bool {
	if len(c.Outputs) == 0 {
		return true
	}
	for _, o := range c.Outputs {
		if o == "otlp" {
			return true
		}
	}
	return false
}

func (c Config) wantStdout() bool {
	for _, o := range c.Outputs {
		if o == "stdout" {
			return true
		}
	}
	return false
}

func (c Config) endpoint() string {
	if c.Endpoint == "" {
		return defaultEndpoint
	}
	return c.Endpoint
}

// Warnings returns human-friendly notes about inconsistent endpoint/TLS
// combinations. None of these stop startup; they are logged so a silent
// export failure is easier to diagnose.
func (c Config) Warnings() []string {
	var warnings []string
	endpoint := c.endpoint()

	u, err := url.Parse(endpoint)
	hasScheme := err == nil && u.Scheme != ""

	usesHTTP := false
	if hasScheme {
		usesHTTP = u.Scheme == "http" || u.Scheme == "https"
	} else if strings.Contains(endpoint, ":4318") {
		usesHTTP = true
	}

	if usesHTTP {
		if hasScheme && u.Scheme == "http" && u.Port() == "4317" {
			warnings = append(warnings, "endpoint uses http:// on port 4317 — port 4317 is conventionally OTLP/gRPC; use 'host:4317' without a scheme for gRPC, or http(s) on port 4318 for OTLP/HTTP")
		}
		if hasScheme && u.Scheme == "http" && !c.Insecure {
			warnings = append(warnings, "endpoint uses http:// but insecure=false — http is plaintext; set insecure=true or switch to https://")
		}
		if hasScheme && u.Scheme == "https" && c.Insecure {
			warnings = append(warnings, "endpoint uses https:// but insecure=true — set insecure=false for TLS or use http:// for plaintext")
		}
	}

	if c.SkipTLSVerify && c.Insecure {
		warnings = append(warnings, "skip_tls_verify=true has no effect when insecure=true (plaintext)")
	}

	return warnings
}

// protocol reports "http" or "grpc" for the configured endpoint, and the
// host portion exporters should dial.
func (c Config) protocol() (string, string) {
	endpoint := c.endpoint()
	if u, err := url.Parse(endpoint); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return "http", u.Host
	}
	if strings.Contains(endpoint, ":4318") {
		return "http", endpoint
	}
	return "grpc", endpoint
}

func (c Config) dialOptions() []grpc.DialOption {
	if c.Insecure {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	if c.SkipTLSVerify {
		creds := grpccreds.NewTLS(&tls.Config{InsecureSkipVerify: true})
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(grpccreds.NewClientTLSFromCert(nil, ""))}
}

func (c Config) httpClient() *http.Client {
	if !c.Insecure && c.SkipTLSVerify {
		return &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	}
	return nil
}

// Setup installs the global tracer, meter and logger providers and returns a
// shutdown function that flushes all of them.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	proto, host := cfg.protocol()

	var processors []sdktrace.SpanProcessor
	var readers []sdkmetric.Reader
	var logProvider *sdklog.LoggerProvider

	if cfg.wantOTLP() {
		if proto == "grpc" {
			traceOpts := []otlptracegrpc.Option{
				otlptracegrpc.WithEndpoint(host),
				otlptracegrpc.WithDialOption(cfg.dialOptions()...),
			}
			if cfg.Insecure {
				traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
			}
			te, err := otlptracegrpc.New(ctx, traceOpts...)
			if err != nil {
				return nil, fmt.Errorf("create trace exporter: %w", err)
			}
			processors = append(processors, sdktrace.NewBatchSpanProcessor(te))

			metricOpts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpoint(host),
				otlpmetricgrpc.WithDialOption(cfg.dialOptions()...),
			}
			if cfg.Insecure {
				metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
			}
			me, err := otlpmetricgrpc.New(ctx, metricOpts...)
			if err != nil {
				return nil, fmt.Errorf("create metric exporter: %w", err)
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(me))

			logOpts := []otlploggrpc.Option{
				otlploggrpc.WithEndpoint(host),
				otlploggrpc.WithDialOption(cfg.dialOptions()...),
			}
			if cfg.Insecure {
				logOpts = append(logOpts, otlploggrpc.WithInsecure())
			}
			le, err := otlploggrpc.New(ctx, logOpts...)
			if err != nil {
				return nil, fmt.Errorf("create log exporter: %w", err)
			}
			logProvider = sdklog.NewLoggerProvider(
				sdklog.WithProcessor(sdklog.NewBatchProcessor(le)),
				sdklog.WithResource(res),
			)
		} else {
			traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(host)}
			if cfg.Insecure {
				traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			}
			if client := cfg.httpClient(); client != nil {
				traceOpts = append(traceOpts, otlptracehttp.WithHTTPClient(client))
			}
			te, err := otlptracehttp.New(ctx, traceOpts...)
			if err != nil {
				return nil, fmt.Errorf("create HTTP trace exporter: %w", err)
			}
			processors = append(processors, sdktrace.NewBatchSpanProcessor(te))

			metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
			if cfg.Insecure {
				metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
			}
			if client := cfg.httpClient(); client != nil {
				metricOpts = append(metricOpts, otlpmetrichttp.WithHTTPClient(client))
			}
			me, err := otlpmetrichttp.New(ctx, metricOpts...)
			if err != nil {
				return nil, fmt.Errorf("create HTTP metric exporter: %w", err)
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(me))

			logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(host)}
			if cfg.Insecure {
				logOpts = append(logOpts, otlploghttp.WithInsecure())
			}
			if client := cfg.httpClient(); client != nil {
				logOpts = append(logOpts, otlploghttp.WithHTTPClient(client))
			}
			le, err := otlploghttp.New(ctx, logOpts...)
			if err != nil {
				return nil, fmt.Errorf("create HTTP log exporter: %w", err)
			}
			logProvider = sdklog.NewLoggerProvider(
				sdklog.WithProcessor(sdklog.NewBatchProcessor(le)),
				sdklog.WithResource(res),
			)
		}
	}

	if cfg.wantStdout() {
		ste, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		processors = append(processors, sdktrace.NewBatchSpanProcessor(ste))

		sme, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(sme))
	}

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	for _, p := range processors {
		tracerProvider.RegisterSpanProcessor(p)
	}
	otel.SetTracerProvider(tracerProvider)

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		meterOpts = append(meterOpts, sdkmetric.WithReader(r))
	}
	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(meterProvider)

	if logProvider != nil {
		global.SetLoggerProvider(logProvider)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		var errs []error
		if err := tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if logProvider != nil {
			if err := logProvider.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry shutdown: %v", errs)
		}
		return nil
	}, nil
}

// NewLogger builds the process logger. Modes: "stdout" for development
// output, anything else is a no-op logger.
func NewLogger(mode string) *zap.Logger {
	if mode == "stdout" {
		l, _ := zap.NewDevelopment()
		return l
	}
	return zap.NewNop()
}
