package obs

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the process logger. format is "text" or "json".
func Setup(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("setup logger: unknown log format %q", format)
	}

	return nil
}
