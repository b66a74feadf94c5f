package command

import (
	"fmt"
	"io"

	"github.com/joeycumines/snipbox/internal/config"
	"github.com/joeycumines/snipbox/internal/scripting"
)

// logFlags are the logging overrides shared by commands that run snippets.
// Zero values defer to the configuration.
type logFlags struct {
	file  string
	level string
}

// hostLog is an opened host logger and the file it mirrors to, if any.
type hostLog struct {
	logger *scripting.HostLogger
	file   io.WriteCloser
}

// Close releases the log file.
func (h *hostLog) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}

// openHostLog builds the host logger from flags, falling back to settings.
// With verbose set, records are also mirrored to stderr.
func openHostLog(flags logFlags, st config.Settings, stderr io.Writer) (*hostLog, error) {
	levelName := flags.level
	if levelName == "" {
		levelName = st.LogLevel
	}
	level, err := scripting.ParseLogLevel(levelName)
	if err != nil {
		return nil, err
	}

	h := &hostLog{}
	var mirrors []io.Writer
	path := flags.file
	if path == "" {
		path = st.LogFile
	}
	if path != "" {
		w, err := scripting.NewRotatingFileWriter(config.ExpandHome(path), st.LogMaxSizeMB, st.LogMaxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		h.file = w
		mirrors = append(mirrors, w)
	}
	if st.Verbose && stderr != nil {
		mirrors = append(mirrors, stderr)
	}

	var mirror io.Writer
	switch len(mirrors) {
	case 0:
	case 1:
		mirror = mirrors[0]
	default:
		mirror = io.MultiWriter(mirrors...)
	}
	h.logger = scripting.NewHostLogger(mirror, level, st.LogBufferSize)
	return h, nil
}
