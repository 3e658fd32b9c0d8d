// Package logging sets up the controller's rotating log file.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// Rotation settings: a new file every local midnight, three old files kept.
const (
	rotationTime = 24 * time.Hour
	keepOld      = 3
)

// TimestampFormat matches "2006-01-02 15:04:05,000".
const TimestampFormat = "2006-01-02 15:04:05,000"

// ParseLevel converts a level name (DEBUG, INFO, WARNING, ERROR, CRITICAL)
// to a logrus level. Names are case-insensitive.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "INFO":
		return logrus.InfoLevel, nil
	case "WARNING", "WARN":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return logrus.FatalLevel, nil
	default:
		return logrus.DebugLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.ErrorLevel:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// Formatter writes one line per entry:
//
//	<timestamp> <LEVEL padded to 8> <message> [key=value ...]
type Formatter struct{}

// Format implements logrus.Formatter.
func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %-8s %s", e.Time.Format(TimestampFormat), levelName(e.Level), strings.TrimRight(e.Message, "\n"))

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Open returns a logger writing to path. The live file is
// path.YYYY-MM-DD and path itself is a symlink to it.
func Open(path string, level logrus.Level) (*logrus.Logger, io.Closer, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("empty log file path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("log file %s: %w", path, err)
	}

	w, err := rotatelogs.New(
		abs+".%Y-%m-%d",
		rotatelogs.WithLinkName(abs),
		rotatelogs.WithClock(rotatelogs.Local),
		rotatelogs.WithRotationTime(rotationTime),
		rotatelogs.WithMaxAge(-1),
		rotatelogs.WithRotationCount(keepOld+1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	return New(w, level), w, nil
}

// New returns a logger writing formatted lines to w.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&Formatter{})
	logger.SetLevel(level)
	return logger
}
