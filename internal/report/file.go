package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/profile"
)

// Format selects the on-disk report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", apperrors.NewConfigError("unknown report format %q (want json or text)", s)
	}
}

// Write encodes rep to w in the given format. The title is only used by the
// text format.
func Write(w io.Writer, format Format, title string, rep *profile.Report) error {
	switch format {
	case FormatText:
		return WriteSeriesText(w, title, rep)
	case FormatJSON, "":
		return WriteReportJSON(w, rep)
	default:
		return apperrors.NewConfigError("unknown report format %q", string(format))
	}
}

// WriteFile writes rep to path, replacing any existing file.
func WriteFile(path string, format Format, title string, rep *profile.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing report file: %w", cerr)
		}
	}()
	return Write(f, format, title, rep)
}
