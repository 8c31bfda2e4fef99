package scheduler

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "scheduler")
