package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/andresmejia3/headtrack/internal/utils"
)

// Camera is a capture device reported by the tracker.
type Camera struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EnumerationError reports a failed camera listing.
type EnumerationError struct {
	ExitCode int
	Logs     string
	Err      error
}

func (e *EnumerationError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("camera enumeration failed (exit code %d)", e.ExitCode)
	}
	return fmt.Sprintf("camera enumeration failed: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

var cameraLine = regexp.MustCompile(`^(\d+): (.+)$`)

// ParseCameraList extracts "<id>: <name>" lines from the tracker's listing.
// The first line is always the header and is never parsed; any other line
// that does not match is skipped.
func ParseCameraList(r io.Reader) ([]Camera, error) {
	var cameras []Camera
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		line := strings.TrimRight(sc.Text(), "\r")
		m := cameraLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue // out of int range
		}
		cameras = append(cameras, Camera{ID: id, Name: m[2]})
	}
	return cameras, sc.Err()
}

// ListCameras runs the tracker in listing mode. A non-zero exit yields an
// EnumerationError and no cameras, even if some lines were printed.
func ListCameras(ctx context.Context, executable string) ([]Camera, error) {
	cmd := utils.NewSafeCommandContext(ctx, executable, "-l", "1")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &EnumerationError{ExitCode: exitErr.ExitCode(), Logs: cmd.Stderr.String(), Err: err}
		}
		return nil, &EnumerationError{Logs: cmd.Stderr.String(), Err: err}
	}

	cameras, err := ParseCameraList(bytes.NewReader(out))
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}
	return cameras, nil
}
