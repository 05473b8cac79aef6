// Package logging holds the process loggers: one for run and evaluation
// progress, one for trial results of the hyperparameter search.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	logger       = newTextLogger("msg")
	searchLogger = newTextLogger("search_msg")
)

// newTextLogger writes timestamped text to stdout at info level. msgKey
// renames the message field so search output can be told apart in a
// mixed stream.
func newTextLogger(msgKey string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		FieldMap:      logrus.FieldMap{logrus.FieldKeyMsg: msgKey},
	})
	return l
}

func GetLogger() *logrus.Logger {
	return logger
}

func GetSearchLogger() *logrus.Logger {
	return searchLogger
}

func SetLogLevel(level string) error {
	return setLevel(logger, level)
}

// SetSearchLogLevel lets trial output stay visible while per-point
// progress is quiet, or the other way round.
func SetSearchLogLevel(level string) error {
	return setLevel(searchLogger, level)
}

func setLevel(l *logrus.Logger, level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(parsed)
	return nil
}
