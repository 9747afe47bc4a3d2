package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type bracketFormatter struct{}

func (f *bracketFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel, logrus.TraceLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}

	msg := entry.Message
	if model, ok := entry.Data["model"]; ok {
		msg = fmt.Sprintf("[%v] %s", model, msg)
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, msg)), nil
}

// New builds the CLI logger. Output goes to stderr so command output on
// stdout stays machine readable.
func New(verbose, silent bool) *logrus.Logger {
	return NewWithWriter(os.Stderr, verbose, silent)
}

func NewWithWriter(w io.Writer, verbose, silent bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&bracketFormatter{})

	switch {
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case silent:
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// DebugFunc adapts a logger to the DebugLog hooks the packages expose.
func DebugFunc(logger *logrus.Logger) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		logger.Debugf(format, args...)
	}
}
