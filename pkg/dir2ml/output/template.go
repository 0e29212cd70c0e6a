package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// TemplateFormatter renders a Go text/template. The template receives the
// Result plus a TotalSize field.
type TemplateFormatter struct {
	tmpl *template.Template
}

type templateData struct {
	*Result
	TotalSize int64
}

// NewTemplateFormatter parses text with the dir2ml template functions.
func NewTemplateFormatter(text string) (*TemplateFormatter, error) {
	tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &TemplateFormatter{tmpl: tmpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// Usage: {{date .ModTime "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},

		// Usage: {{bytes .Size}}
		"bytes": func(size int64) string {
			return humanize.IBytes(uint64(size))
		},

		// Usage: {{join .Path "/"}}
		"join": strings.Join,

		// last returns the hex of the final (strongest) digest.
		// Usage: {{last .Hashes}}
		"last": func(hashes []types.Hash) string {
			if len(hashes) == 0 {
				return ""
			}
			return hashes[len(hashes)-1].Hex
		},
	}
}

func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	return f.tmpl.Execute(w, templateData{Result: r, TotalSize: r.TotalSize()})
}

// defaultTemplate mimics sha256sum output when sha256 is the last digest.
const defaultTemplate = `{{range .Files}}{{last .Hashes}}  {{.Name}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		f, err := NewTemplateFormatter(defaultTemplate)
		if err != nil {
			panic(err)
		}
		return f
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)
