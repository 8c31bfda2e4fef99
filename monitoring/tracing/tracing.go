// Package tracing sets up jaeger as an opencensus tracing tool for the
// dashboard backend services.
package tracing

import (
	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/gonka-ai/dashboard-backend/runtime/version"
)

var log = logrus.WithField("prefix", "tracing")

// Setup creates and initializes a new jaeger tracing configuration with
// opencensus.
func Setup(serviceName, processName, endpoint string, sampleFraction float64, enable bool) error {
	if !enable {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return nil
	}

	if serviceName == "" {
		return errors.New("tracing service name cannot be empty")
	}

	trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(sampleFraction)})

	log.Infof("Starting Jaeger exporter endpoint at address = %s", endpoint)
	exporter, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: endpoint,
		Process: jaeger.Process{
			ServiceName: serviceName,
			Tags: []jaeger.Tag{
				jaeger.StringTag("process_name", processName),
				jaeger.StringTag("version", version.GetVersion()),
			},
		},
		BufferMaxCount: 10000,
		OnError: func(err error) {
			log.WithError(err).Error("Could not process span")
		},
	})
	if err != nil {
		return err
	}
	trace.RegisterExporter(exporter)
	return nil
}
