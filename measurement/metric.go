package measurement

import "sort"

// Metric names, as used in ValueMap.
const (
	Ambient   = "ambient"
	Object    = "object"
	Reference = "reference"
)

type Metric struct {
	Name string
	// Abbrv is used as the field name in time series databases.
	Abbrv string
	Unit  string
}

var metrics = map[string]Metric{
	Ambient:   {Name: "Ambient temperature", Abbrv: "ta", Unit: "°C"},
	Object:    {Name: "Object temperature", Abbrv: "to", Unit: "°C"},
	Reference: {Name: "Reference temperature", Abbrv: "tref", Unit: "°C"},
}

// GetMetric returns the Metric for the given ValueMap key.
func GetMetric(name string) (Metric, bool) {
	m, ok := metrics[name]
	return m, ok
}

// MetricNames returns the names of all known metrics, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
