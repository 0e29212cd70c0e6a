package output

import "bytes"

// PathsFormatter lists the relative name of every surviving file, each
// followed by Sep. An empty Sep means newline.
type PathsFormatter struct {
	Sep string
}

func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	sep := f.Sep
	if sep == "" {
		sep = "\n"
	}
	for _, file := range r.Files {
		w.WriteString(file.Name)
		w.WriteString(sep)
	}
	return nil
}

func init() {
	Register("paths", func() Formatter { return &PathsFormatter{} })
	// NUL-separated, for xargs -0.
	Register("null", func() Formatter { return &PathsFormatter{Sep: "\x00"} })
}
