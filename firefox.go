package vulpo

import (
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const processGrace = 5 * time.Second

// firefoxPaths lists the usual install locations per platform.
var firefoxPaths = map[string][]string{
	"linux": {
		"/usr/bin/firefox",
		"/usr/local/bin/firefox",
		"/snap/bin/firefox",
		"/opt/firefox/firefox",
	},
	"darwin": {
		"/Applications/Firefox.app/Contents/MacOS/firefox",
		"/Applications/Firefox Developer Edition.app/Contents/MacOS/firefox",
	},
	"windows": {
		`C:\Program Files\Mozilla Firefox\firefox.exe`,
		`C:\Program Files (x86)\Mozilla Firefox\firefox.exe`,
	},
}

// FindFirefox locates a Firefox binary, preferring PATH over the known
// install locations.
func FindFirefox() (string, error) {
	if path, err := exec.LookPath("firefox"); err == nil {
		return path, nil
	}
	for _, path := range firefoxPaths[runtime.GOOS] {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", newError(KindConfig, "no firefox binary found for %s", runtime.GOOS)
}

// firefoxProcess supervises one child Firefox instance.
type firefoxProcess struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
	logger  *slog.Logger
}

func launchFirefox(binary string, args []string, logger *slog.Logger) (*firefoxProcess, error) {
	cmd := exec.Command(binary, args...)
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, wrapError(KindConfig, err, "launch %s", binary)
	}
	fp := &firefoxProcess{
		cmd:    cmd,
		exited: make(chan struct{}),
		logger: logger.With("pid", cmd.Process.Pid),
	}
	go func() {
		fp.waitErr = cmd.Wait()
		close(fp.exited)
	}()
	fp.logger.Debug("firefox started", "binary", binary)
	return fp, nil
}

func (fp *firefoxProcess) pid() int { return fp.cmd.Process.Pid }

// terminate stops the process: SIGTERM first, SIGKILL once the grace
// period runs out.
func (fp *firefoxProcess) terminate(grace time.Duration) error {
	select {
	case <-fp.exited:
		return nil
	default:
	}

	signalProcessGroup(fp.cmd, false)
	select {
	case <-fp.exited:
		fp.logger.Debug("firefox exited after term")
		return nil
	case <-time.After(grace):
	}

	fp.logger.Warn("firefox ignored term, killing")
	signalProcessGroup(fp.cmd, true)
	select {
	case <-fp.exited:
		return nil
	case <-time.After(grace):
		return newError(KindIO, "firefox pid %d survived kill", fp.pid())
	}
}
