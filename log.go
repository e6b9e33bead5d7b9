package p2p

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetupLogging sets the level of the package's logger and optionally mirrors all output
// into a rotating log file. The returned closer flushes the log file.
func SetupLogging(level string, path string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetLevel(lvl)

	if path == "" {
		return io.NopCloser(nil), nil
	}

	if dir, _ := filepath.Split(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
	}
	r, err := rotator.New(path, 10*1024, false, 3)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file rotator")
	}
	log.SetOutput(io.MultiWriter(os.Stderr, r))
	return r, nil
}
