package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"univsrg/internal/errs"
	"univsrg/internal/osu"
)

// Request describes one conversion.
type Request struct {
	// Inputs are the bundles to merge, parsed in order.
	Inputs []string
	// Output is the bundle to write.
	Output string
	// Filter overrides export.filter when non-empty.
	Filter string
	// KeepPathIndex lets paths in later bundles resolve to files from earlier
	// ones, overriding import.clear_path_index.
	KeepPathIndex bool
	// Overwrite replaces an existing output bundle.
	Overwrite bool
}

// normalize resolves paths to absolute form and checks that the request can
// run before any lock is taken.
func (r Request) normalize() (Request, error) {
	if len(r.Inputs) == 0 {
		return r, errs.Wrap(errs.ErrConfiguration, "convert", "request", "at least one input bundle is required", nil)
	}
	output, err := bundlePath(r.Output, "output")
	if err != nil {
		return r, err
	}

	inputs := make([]string, 0, len(r.Inputs))
	for _, raw := range r.Inputs {
		input, err := bundlePath(raw, "input")
		if err != nil {
			return r, err
		}
		if input == output {
			return r, errs.Wrap(errs.ErrConfiguration, "convert", "request", fmt.Sprintf("%s is both an input and the output", input), nil)
		}
		info, err := os.Stat(input)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return r, errs.Wrap(errs.ErrConfiguration, "convert", "request", fmt.Sprintf("input %s does not exist", input), err)
			}
			return r, errs.Wrap(errs.ErrIO, "convert", "request", input, err)
		}
		if !info.Mode().IsRegular() {
			return r, errs.Wrap(errs.ErrConfiguration, "convert", "request", fmt.Sprintf("input %s is not a file", input), nil)
		}
		inputs = append(inputs, input)
	}

	if !r.Overwrite {
		if _, err := os.Stat(output); err == nil {
			return r, errs.AlreadyExists("convert", "request", fmt.Sprintf("output %s exists; pass --force to replace it", output))
		}
	}

	r.Inputs = inputs
	r.Output = output
	r.Filter = strings.TrimSpace(r.Filter)
	return r, nil
}

func bundlePath(raw, role string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errs.Wrap(errs.ErrConfiguration, "convert", "request", role+" path is required", nil)
	}
	if !strings.EqualFold(filepath.Ext(raw), osu.BundleExt) {
		return "", errs.Wrap(errs.ErrConfiguration, "convert", "request", fmt.Sprintf("%s %s must have the %s extension", role, raw, osu.BundleExt), nil)
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, "convert", "request", raw, err)
	}
	return abs, nil
}
