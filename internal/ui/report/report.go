package report

import (
	"fmt"
	"io"

	"pubscan/internal/core/app"
	"pubscan/internal/core/errors"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options control how a Result is rendered.
type Options struct {
	Format string
	// Short prints one line per symbol sorted by usage. It applies to the
	// text format only.
	Short      bool
	ShowUnused bool
	// MaxImporters bounds the importer sample in text output.
	MaxImporters int
	// Color is one of auto, always or never.
	Color string
}

// Render writes result to w in the requested format.
func Render(w io.Writer, result *app.Result, opts Options) error {
	if result == nil {
		return errors.New(errors.CodeInternal, "no result to render")
	}
	if opts.MaxImporters <= 0 {
		opts.MaxImporters = 3
	}

	switch opts.Format {
	case FormatJSON:
		return NewJSONGenerator().Write(w, result)
	case FormatText, "":
		gen := NewTextGenerator(w, opts)
		if opts.Short {
			return gen.WriteShort(result)
		}
		return gen.Write(result)
	default:
		return errors.New(errors.CodeConfig, fmt.Sprintf("unknown output format %q", opts.Format))
	}
}
