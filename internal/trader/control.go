package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantfall/trademasterx/internal/domain"
)

// FileControl implements domain.ControlSource on a small JSON file:
//
//	{"state": "PAUSE"}
//
// A missing file means RUN, so deleting the file always resumes trading.
// An unreadable or malformed file also reads as RUN, with a warning, rather
// than wedging the loop.
type FileControl struct {
	path   string
	logger *slog.Logger
}

// NewFileControl creates a FileControl over the file at path.
func NewFileControl(path string, logger *slog.Logger) *FileControl {
	return &FileControl{
		path:   path,
		logger: logger.With(slog.String("component", "control")),
	}
}

type controlFile struct {
	State string `json:"state"`
}

// State reads the current control state from the file.
func (f *FileControl) State(ctx context.Context) (domain.ControlState, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ControlRun, nil
	}
	if err != nil {
		f.logger.WarnContext(ctx, "control file unreadable, assuming RUN",
			slog.String("path", f.path),
			slog.String("error", err.Error()),
		)
		return domain.ControlRun, nil
	}

	var cf controlFile
	if err := json.Unmarshal(data, &cf); err != nil {
		f.logger.WarnContext(ctx, "control file malformed, assuming RUN",
			slog.String("path", f.path),
			slog.String("error", err.Error()),
		)
		return domain.ControlRun, nil
	}

	switch domain.ControlState(strings.ToUpper(strings.TrimSpace(cf.State))) {
	case domain.ControlPause:
		return domain.ControlPause, nil
	case domain.ControlRun:
		return domain.ControlRun, nil
	default:
		f.logger.WarnContext(ctx, "control file has unknown state, assuming RUN",
			slog.String("path", f.path),
			slog.String("state", cf.State),
		)
		return domain.ControlRun, nil
	}
}

// Set writes the control state to the file. The write goes through a temp
// file and rename so a reader never sees a half-written file.
func (f *FileControl) Set(_ context.Context, state domain.ControlState) error {
	data, err := json.Marshal(controlFile{State: string(state)})
	if err != nil {
		return fmt.Errorf("trader: marshal control state: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".control-*")
	if err != nil {
		return fmt.Errorf("trader: create control temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("trader: write control state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("trader: close control temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("trader: replace control file: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ControlSource = (*FileControl)(nil)
