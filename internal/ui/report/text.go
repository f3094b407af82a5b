package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"pubscan/internal/core/app"
	"pubscan/internal/engine/parser"
	"pubscan/internal/shared/util"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const noSymbolsMessage = "No public API symbols found with external usage."

var kindOrder = []parser.BindingKind{
	parser.KindClass,
	parser.KindFunction,
	parser.KindVariable,
	parser.KindModule,
	parser.KindOther,
}

type textStyles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	name    lipgloss.Style
	count   lipgloss.Style
	public  lipgloss.Style
	private lipgloss.Style
	doc     lipgloss.Style
	dim     lipgloss.Style
	warn    lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	return textStyles{
		title:   r.NewStyle().Bold(true),
		header:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		name:    r.NewStyle().Foreground(lipgloss.Color("#22D3EE")).Bold(true),
		count:   r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		public:  r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		private: r.NewStyle().Foreground(lipgloss.Color("#F87171")),
		doc:     r.NewStyle().Italic(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#64748B")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true),
	}
}

// TextGenerator renders results for terminals.
type TextGenerator struct {
	w      io.Writer
	opts   Options
	styles textStyles
}

func NewTextGenerator(w io.Writer, opts Options) *TextGenerator {
	r := lipgloss.NewRenderer(w)
	switch opts.Color {
	case "never":
		r.SetColorProfile(termenv.Ascii)
	case "always":
		r.SetColorProfile(termenv.ANSI256)
	}
	return &TextGenerator{w: w, opts: opts, styles: newTextStyles(r)}
}

// Write prints the grouped report: one section per kind, then a summary.
func (g *TextGenerator) Write(result *app.Result) error {
	var b strings.Builder
	s := g.styles

	if len(result.PublicAPI) == 0 {
		b.WriteString(noSymbolsMessage + "\n")
	} else {
		fmt.Fprintf(&b, "Public API for %s:\n\n", s.title.Render(g.display(result, result.TargetPath)))

		byKind := make(map[parser.BindingKind][]app.APIEntry)
		for _, entry := range result.PublicAPI {
			byKind[entry.Kind] = append(byKind[entry.Kind], entry)
		}
		for _, kind := range kindOrder {
			entries := byKind[kind]
			if len(entries) == 0 {
				continue
			}
			b.WriteString(s.header.Render(strings.ToUpper(kind.String())+":") + "\n")
			for _, entry := range entries {
				g.writeEntry(&b, result, entry)
			}
		}

		fmt.Fprintf(&b, "Found %s public API symbols with external usage.\n", s.title.Render(fmt.Sprint(len(result.PublicAPI))))
	}

	if g.opts.ShowUnused {
		g.writeUnused(&b, result)
	}
	g.writeSkipped(&b, result)

	_, err := io.WriteString(g.w, b.String())
	return err
}

func (g *TextGenerator) writeEntry(b *strings.Builder, result *app.Result, entry app.APIEntry) {
	s := g.styles
	visibility := s.public.Render("public")
	if !entry.Conventional {
		visibility = s.private.Render("private")
	}
	fmt.Fprintf(b, "  %s (%s, %s)\n", s.name.Render(entry.Name), s.count.Render(usageLabel(entry.UsageCount)), visibility)
	fmt.Fprintf(b, "    Fully qualified: %s\n", entry.FullyQualifiedName)
	if doc := firstLine(entry.Docstring); doc != "" {
		fmt.Fprintf(b, "    %s\n", s.doc.Render(doc))
	}
	location := fmt.Sprintf("%s:%d:%d", g.display(result, entry.File), entry.Span.StartLine, entry.Span.StartColumn)
	fmt.Fprintf(b, "    Location: %s\n", s.dim.Render(location))

	if n := len(entry.Importers); n > 0 {
		limit := g.opts.MaxImporters
		sample := make([]string, 0, limit)
		for i, path := range entry.Importers {
			if i == limit {
				break
			}
			sample = append(sample, g.display(result, path))
		}
		if n <= limit {
			fmt.Fprintf(b, "    Imported by: %s\n", s.dim.Render(strings.Join(sample, ", ")))
		} else {
			fmt.Fprintf(b, "    Imported by: %s and %d more files\n", s.dim.Render(strings.Join(sample, ", ")), n-limit)
		}
	}
	b.WriteString("\n")
}

func (g *TextGenerator) writeUnused(b *strings.Builder, result *app.Result) {
	if len(result.Unused) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", g.styles.header.Render("UNUSED:"))
	for _, sym := range result.Unused {
		fmt.Fprintf(b, "  %s %s\n", sym.Name, g.styles.dim.Render("("+sym.FullyQualifiedName+")"))
	}
}

func (g *TextGenerator) writeSkipped(b *strings.Builder, result *app.Result) {
	skipped := result.Diagnostics.FilesSkipped
	if skipped == 0 {
		return
	}
	noun := "files"
	if skipped == 1 {
		noun = "file"
	}
	b.WriteString(g.styles.warn.Render(fmt.Sprintf("%d %s skipped", skipped, noun)) + "\n")
	for _, w := range result.Diagnostics.Warnings {
		fmt.Fprintf(b, "  %s: [%s] %s\n", g.display(result, w.Path), w.Code, w.Message)
	}
}

// WriteShort prints one line per symbol, most used first.
func (g *TextGenerator) WriteShort(result *app.Result) error {
	var b strings.Builder
	if len(result.PublicAPI) == 0 {
		b.WriteString(noSymbolsMessage + "\n")
	} else {
		entries := append([]app.APIEntry(nil), result.PublicAPI...)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].UsageCount > entries[j].UsageCount
		})

		fmt.Fprintf(&b, "Public API Summary for %s:\n", g.styles.title.Render(g.display(result, result.TargetPath)))
		for _, entry := range entries {
			fmt.Fprintf(&b, "  %s (%s)\n", g.styles.name.Render(entry.Name), usageLabel(entry.UsageCount))
		}
	}
	g.writeSkipped(&b, result)

	_, err := io.WriteString(g.w, b.String())
	return err
}

func (g *TextGenerator) display(result *app.Result, path string) string {
	return util.DisplayPath(path, result.ProjectRoot)
}

func usageLabel(n int) string {
	if n == 1 {
		return "1 external usage"
	}
	return fmt.Sprintf("%d external usages", n)
}

func firstLine(doc string) string {
	doc = strings.TrimSpace(doc)
	if idx := strings.IndexByte(doc, '\n'); idx >= 0 {
		doc = doc[:idx]
	}
	return strings.TrimSpace(doc)
}
