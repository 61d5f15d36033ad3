package search

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/artillery/internal/search"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
