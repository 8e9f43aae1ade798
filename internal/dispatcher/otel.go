package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/dcsturman/callisto-sub000/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
