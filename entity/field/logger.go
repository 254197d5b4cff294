package field

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "field")
