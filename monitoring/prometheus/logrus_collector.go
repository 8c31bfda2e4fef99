package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// LogrusCollector is a logrus hook that counts emitted log entries by level
// and by the per-package "prefix" field, so noisy components show up in
// metrics before anyone reads the logs.
type LogrusCollector struct {
	counterVec *prometheus.CounterVec
}

var (
	supportedLevels = []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	logCounterVec   = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_log_entries_total",
		Help: "Total number of log messages by level and component prefix.",
	}, []string{"level", "prefix"})
)

const prefixKey = "prefix"
const defaultPrefix = "global"

// NewLogrusCollector returns a hook ready to be installed with
// logrus.AddHook. The underlying counter is registered once at package init.
func NewLogrusCollector() *LogrusCollector {
	return &LogrusCollector{
		counterVec: logCounterVec,
	}
}

// Fire is called on every log call.
func (hook *LogrusCollector) Fire(entry *logrus.Entry) error {
	prefix := defaultPrefix
	if prefixValue, ok := entry.Data[prefixKey]; ok {
		prefix, ok = prefixValue.(string)
		if !ok {
			return errors.New("prefix is not a string")
		}
	}
	hook.counterVec.WithLabelValues(entry.Level.String(), prefix).Inc()
	return nil
}

// Levels returns the log levels the hook counts.
func (_ *LogrusCollector) Levels() []logrus.Level {
	return supportedLevels
}
