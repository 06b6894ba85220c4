package metrics

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

type capabilities struct{}

func (capabilities) Reporting() bool { return true }
func (capabilities) Tagging() bool { return true }

// LogReporter is a tally.StatsReporter that writes every reported value as a
// structured logrus entry.
type LogReporter struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

var _ tally.StatsReporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter logging at level through logger.
func NewLogReporter(logger logrus.FieldLogger, level logrus.Level) *LogReporter {
	return &LogReporter{logger: logger, level: level}
}

// NewRootScope builds a tally root scope reporting through a LogReporter at level.
// Closing the returned io.Closer flushes the final values.
func NewRootScope(prefix string, logger logrus.FieldLogger, level logrus.Level, interval time.Duration) (tally.Scope, io.Closer) {
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:    prefix,
		Tags:      map[string]string{},
		Reporter:  NewLogReporter(logger, level),
		Separator: ".",
	}, interval)
}

func (r *LogReporter) Capabilities() tally.Capabilities { return capabilities{} }

func (r *LogReporter) Flush() {}

func (r *LogReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.log(name, tags, "counter", value)
}

func (r *LogReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.log(name, tags, "gauge", value)
}

func (r *LogReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.log(name, tags, "timer", interval)
}

func (r *LogReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound float64,
	samples int64,
) {
	r.entry(name, tags, "histogram").
		WithField("bucket", [2]float64{bucketLowerBound, bucketUpperBound}).
		Logf(r.level, "%s = %d", name, samples)
}

func (r *LogReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration,
	samples int64,
) {
	r.entry(name, tags, "histogram").
		WithField("bucket", [2]time.Duration{bucketLowerBound, bucketUpperBound}).
		Logf(r.level, "%s = %d", name, samples)
}

func (r *LogReporter) log(name string, tags map[string]string, kind string, value interface{}) {
	r.entry(name, tags, kind).Logf(r.level, "%s = %v", name, value)
}

func (r *LogReporter) entry(name string, tags map[string]string, kind string) *logrus.Entry {
	fields := logrus.Fields{"metric": name, "kind": kind}
	for k, v := range tags {
		fields[k] = v
	}
	return r.logger.WithFields(fields)
}
