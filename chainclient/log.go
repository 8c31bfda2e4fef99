package chainclient

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "chainclient")
