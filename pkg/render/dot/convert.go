package dot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// ErrNoRSVG is returned when PDF or PNG output is requested but rsvg-convert
// is not installed.
var ErrNoRSVG = errors.New("rsvg-convert not found")

// ConvertSVG turns an SVG document into "pdf" or "png" with rsvg-convert.
// scale multiplies the PNG resolution; values <= 0 mean 1.
func ConvertSVG(ctx context.Context, svg []byte, format string, scale float64) ([]byte, error) {
	args := []string{"--format", format}
	switch format {
	case "pdf":
	case "png":
		if scale <= 0 {
			scale = 1
		}
		args = append(args, "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
	default:
		return nil, fmt.Errorf("rsvg-convert cannot produce %q", format)
	}

	bin, err := exec.LookPath("rsvg-convert")
	if err != nil {
		return nil, fmt.Errorf("%w: %s output needs librsvg (brew install librsvg, apt install librsvg2-bin)", ErrNoRSVG, format)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("rsvg-convert %s: %w: %s", format, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, nil
}
