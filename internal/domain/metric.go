package domain

import "fmt"

// Metric is the similarity metric a collection is declared with.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricDot       Metric = "dot"
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric validates a metric name from configuration or API input.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricDot, MetricEuclidean:
		return Metric(s), nil
	case "":
		return MetricCosine, nil
	}
	return "", fmt.Errorf("%w: unknown similarity metric %q", ErrInvalidConfiguration, s)
}
