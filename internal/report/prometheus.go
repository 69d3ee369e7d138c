package report

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names used in the Prometheus text exposition.
const (
	MetricDeployments         = "dora_deployments"
	MetricDeploymentFrequency = "dora_deployment_frequency"
	MetricMTTR                = "dora_mttr_days"
	MetricChangeFailureRate   = "dora_change_failure_rate_percent"
)

// MetricFamilies converts a report into gauges labelled with the project. The
// deployment frequency carries its unit as a label because the calculator may
// switch between days per release and releases per day.
func MetricFamilies(r *Report) []*dto.MetricFamily {
	project := &dto.LabelPair{Name: proto.String("project"), Value: proto.String(r.Project)}

	gauge := func(name, help string, value float64, extra ...*dto.LabelPair) *dto.MetricFamily {
		labels := append([]*dto.LabelPair{project}, extra...)
		return &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(help),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Label: labels,
				Gauge: &dto.Gauge{Value: proto.Float64(value)},
			}},
		}
	}

	return []*dto.MetricFamily{
		gauge(MetricDeployments, "Number of releases in the reporting window.", float64(r.Deployments)),
		gauge(MetricDeploymentFrequency, "Average release cadence, in the unit given by the unit label.", r.DeploymentFrequency,
			&dto.LabelPair{Name: proto.String("unit"), Value: proto.String(r.DeploymentFrequencyLabel)}),
		gauge(MetricMTTR, "Mean days from a fix version's release to the resolution of its high-priority bugs.", r.MTTR),
		gauge(MetricChangeFailureRate, "Percentage of high-priority bugs fixed in a patch release.", r.ChangeFailureRate),
	}
}

// WritePrometheus writes the report in the Prometheus text exposition format, suitable
// for a node_exporter textfile collector.
func WritePrometheus(w io.Writer, r *Report) error {
	for _, mf := range MetricFamilies(r) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return goerr.Wrap(err, "failed to write metric family", goerr.V("metric", mf.GetName()))
		}
	}
	return nil
}
