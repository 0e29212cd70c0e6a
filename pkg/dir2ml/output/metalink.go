package output

import (
	"bytes"
	"encoding/xml"
	"time"
)

// MetalinkNamespace is the RFC 5854 XML namespace.
const MetalinkNamespace = "urn:ietf:params:xml:ns:metalink"

// Metalink is the document model written by MetalinkFormatter. It is
// exported so documents can be read back.
type Metalink struct {
	XMLName   xml.Name       `xml:"urn:ietf:params:xml:ns:metalink metalink"`
	Generator string         `xml:"generator,omitempty"`
	Updated   string         `xml:"updated,omitempty"`
	Files     []MetalinkFile `xml:"file"`
}

// MetalinkFile is one <file> element.
type MetalinkFile struct {
	Name   string         `xml:"name,attr"`
	Size   int64          `xml:"size"`
	Hashes []MetalinkHash `xml:"hash"`
	URLs   []MetalinkURL  `xml:"url"`
}

// MetalinkHash is one <hash type="..."> element.
type MetalinkHash struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// MetalinkURL is one <url> element. Location carries the country code.
type MetalinkURL struct {
	Location string `xml:"location,attr,omitempty"`
	Value    string `xml:",chardata"`
}

// MetalinkFormatter writes a Metalink 4 document.
type MetalinkFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MetalinkFormatter) Format(w *bytes.Buffer, r *Result) error {
	doc := f.buildDocument(r)

	w.WriteString(xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	w.WriteByte('\n')
	return nil
}

func (f *MetalinkFormatter) buildDocument(r *Result) Metalink {
	doc := Metalink{Generator: r.Generator}
	if !r.Updated.IsZero() {
		doc.Updated = r.Updated.UTC().Format(time.RFC3339)
	}

	doc.Files = make([]MetalinkFile, len(r.Files))
	for i, file := range r.Files {
		mf := MetalinkFile{Name: file.Name, Size: file.Size}
		for _, h := range file.Hashes {
			mf.Hashes = append(mf.Hashes, MetalinkHash{Type: h.Type, Value: h.Hex})
		}
		for _, l := range file.Locations {
			mf.URLs = append(mf.URLs, MetalinkURL{Location: l.Country, Value: l.URL})
		}
		doc.Files[i] = mf
	}
	logger.Debug("metalink document built", "files", len(doc.Files))
	return doc
}

func init() {
	Register("metalink", func() Formatter {
		return &MetalinkFormatter{}
	})
}

// Ensure MetalinkFormatter implements Formatter.
var _ Formatter = (*MetalinkFormatter)(nil)
