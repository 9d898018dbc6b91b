package common

import (
	"fmt"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus backed logr.Logger. V(1) messages show up at debug level
func NewLogger(level string) (logr.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logr.Discard(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logrusr.New(logger), nil
}
