// Package extract turns uploaded resume documents (PDF, DOCX, RTF, plain
// text) into plain text for the resume parser.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Document formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatRTF  = "rtf"
	FormatText = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeRTF  = "application/rtf"
	mimeDOC  = "application/msword"
)

// ErrUnsupportedFormat is returned for documents that are not PDF, DOCX, RTF or text.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrNoText is returned when a document holds no extractable text, such as a scanned PDF.
var ErrNoText = errors.New("document contains no extractable text")

// Text extracts and sanitizes the text of an uploaded document. The format
// is taken from the content type, then the file extension, then the leading
// bytes.
func Text(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format, err := DetectFormat(contentType, fileName, data)
	if err != nil {
		return "", err
	}

	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	case FormatRTF:
		raw = stripRTF(string(data))
	default:
		raw = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s %q: %w", format, fileName, err)
	}

	text := Sanitize(raw)
	if text == "" {
		return "", fmt.Errorf("extract %s %q: %w", format, fileName, ErrNoText)
	}
	return text, nil
}

// DetectFormat resolves the document format of an upload.
func DetectFormat(contentType, fileName string, data []byte) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mime {
	case mimePDF:
		return FormatPDF, nil
	case mimeDOCX:
		return FormatDOCX, nil
	case mimeRTF, "text/rtf":
		return FormatRTF, nil
	case "text/plain", "text/markdown":
		return FormatText, nil
	case mimeDOC:
		return "", fmt.Errorf("%w: legacy .doc files must be saved as .docx or PDF", ErrUnsupportedFormat)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".rtf":
		return FormatRTF, nil
	case ".txt", ".md", ".text":
		return FormatText, nil
	case ".doc":
		return "", fmt.Errorf("%w: legacy .doc files must be saved as .docx or PDF", ErrUnsupportedFormat)
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return FormatPDF, nil
	case bytes.HasPrefix(data, []byte("{\\rtf")):
		return FormatRTF, nil
	case bytes.HasPrefix(data, []byte("PK")) && isDOCX(data):
		return FormatDOCX, nil
	case looksLikeText(data):
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, firstNonEmpty(mime, filepath.Ext(fileName), "unknown"))
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return docxText(rc)
}

// docxText collects the text runs of a WordprocessingML body, breaking
// lines at paragraphs and explicit breaks and keeping tabs.
func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br":
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

var (
	rtfTables    = regexp.MustCompile(`\{\\(?:fonttbl|colortbl|stylesheet|info)[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	rtfHexEscape = regexp.MustCompile(`\\'[0-9a-fA-F]{2}`)
	rtfParagraph = regexp.MustCompile(`\\(?:par|line)\b ?`)
	rtfControl   = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?`)
)

// stripRTF removes RTF control words and groups, keeping paragraph breaks.
func stripRTF(raw string) string {
	s := rtfTables.ReplaceAllString(raw, "")
	s = rtfHexEscape.ReplaceAllString(s, "")
	s = rtfParagraph.ReplaceAllString(s, "\n")
	s = rtfControl.ReplaceAllString(s, "")
	s = strings.NewReplacer("{", "", "}", "", "\\\\", "\\").Replace(s)
	return s
}

var (
	inlineSpace = regexp.MustCompile(`[\t\x0b\x0c\r]+`)
	multiSpace  = regexp.MustCompile(` {2,}`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Sanitize normalizes extracted text: invalid UTF-8 and replacement
// characters are dropped, tabs and other inline whitespace become spaces,
// space runs collapse and at most one blank line separates paragraphs.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\ufffd", "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = inlineSpace.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// looksLikeText reports whether data is UTF-8 without control bytes other
// than whitespace.
func looksLikeText(data []byte) bool {
	if len(data) == 0 || !utf8.Valid(data) {
		return false
	}
	for _, b := range data {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != '\v' {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
