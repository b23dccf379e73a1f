// Package log is the logging facade shared by the decoders and the command line tool.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	KeyError  = "error"
	KeyPath   = "path"
	KeyFormat = "format"
	KeyStream = "stream"
	KeyTable  = "table"
	KeySector = "sector"
	KeyRows   = "rows"
)

// configure at build time by adding go build arguments:
//	-ldflags="-X github.com/msitools/msiparser/internal/log.loglevel=debug"
// MSIPARSER_LOG_LEVEL overrides it at run time.
var loglevel = "warn"

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warning(msg string, fields map[string]interface{})
	SetLevel(level string)
	SetLogWriter(writer io.Writer)
}

func init() {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Formatter = &logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true}
	r := &defaultLogger{
		logger: logger,
	}
	level := loglevel
	if env := os.Getenv("MSIPARSER_LOG_LEVEL"); env != "" {
		level = env
	}
	r.SetLevel(level)
	mLog = r
}

var mLog Logger

type defaultLogger struct {
	logger *logrus.Logger
}

func (l *defaultLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Debug(msg)
}

func (l *defaultLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Info(msg)
}

func (l *defaultLogger) Warning(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Warning(msg)
}

func (l *defaultLogger) SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		l.logger.SetLevel(logrus.DebugLevel)
	case "info":
		l.logger.SetLevel(logrus.InfoLevel)
	case "error":
		l.logger.SetLevel(logrus.ErrorLevel)
	default:
		l.logger.SetLevel(logrus.WarnLevel)
	}
}

func (l *defaultLogger) SetLogWriter(writer io.Writer) {
	l.logger.Out = writer
}

// SetLogger replaces the default logrus backed logger.
func SetLogger(logger Logger) {
	mLog = logger
}

func SetLogLevel(level string) {
	if level == "" {
		return
	}
	mLog.SetLevel(level)
}

func SetLogWriter(writer io.Writer) {
	if writer == nil {
		return
	}
	mLog.SetLogWriter(writer)
}

func Debug(msg string, fields map[string]interface{}) {
	mLog.Debug(msg, fields)
}

func Info(msg string, fields map[string]interface{}) {
	if msg == "" && len(fields) == 0 {
		return
	}
	mLog.Info(msg, fields)
}

func Warning(msg string, fields map[string]interface{}) {
	if msg == "" && len(fields) == 0 {
		return
	}
	mLog.Warning(msg, fields)
}
