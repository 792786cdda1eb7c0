package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

// Filename is the download name, e.g. "nutritional-plan-3.pdf".
func (c *Content) Filename(f Format) string {
	return fmt.Sprintf("%s-%d.%s", c.Document, c.Consultation, f)
}

func (c *Content) Render(w io.Writer, f Format) error {
	switch f {
	case FormatHTML:
		return c.RenderHTML(w)
	case FormatPDF:
		return c.RenderPDF(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func (c *Content) subtitle() string {
	return fmt.Sprintf("Patient: %s · Consultation #%d · %s", c.PatientName, c.Consultation, c.Date.Format("2006-01-02"))
}

// Markdown is the GitHub-flavoured source of the HTML rendering. Section
// text is escaped so it renders literally.
func (c *Content) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nPatient: %s · Consultation #%d · %s\n",
		escapeMarkdown(c.Title), escapeMarkdown(c.PatientName), c.Consultation, c.Date.Format("2006-01-02"))
	for _, blk := range c.Blocks {
		fmt.Fprintf(&b, "\n## %s\n\n", escapeMarkdown(blk.Heading))
		if blk.Text != "" {
			b.WriteString(escapeMarkdown(blk.Text))
			b.WriteString("\n")
		}
		for _, it := range blk.Items {
			if blk.Checklist {
				fmt.Fprintf(&b, "- [ ] %s\n", escapeMarkdown(it))
			} else {
				fmt.Fprintf(&b, "- %s\n", escapeMarkdown(it))
			}
		}
	}
	return b.String()
}

const markdownPunct = "\\!\"#$%&'()*+,-./:;<=>?@[]^_`{|}~"

// escapeMarkdown backslash-escapes ASCII punctuation and drops leading
// indentation, so coach text never becomes Markdown structure.
func escapeMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, r := range strings.TrimLeft(line, " \t") {
			if r < 0x80 && strings.ContainsRune(markdownPunct, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Raw HTML in section text is not passed through.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

var page = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;color:#1f2933;margin:0;background:#f5f7fa}
main{max-width:720px;margin:32px auto;padding:32px 40px;background:#fff;border-radius:8px}
h1{color:#2f855a;margin:0 0 4px;font-size:28px}
h1+p{color:#616e7c;margin:0 0 24px;font-size:13px}
h2{color:#276749;border-bottom:1px solid #e4e7eb;padding-bottom:4px;font-size:18px;margin-top:28px}
ul{padding-left:20px}li{margin:4px 0}
li input[type=checkbox]{margin-right:8px}
@media print{body{background:#fff}main{margin:0;padding:0}}
</style>
</head>
<body>
<main>
{{.Body}}</main>
</body>
</html>
`))

func (c *Content) RenderHTML(w io.Writer) error {
	var body bytes.Buffer
	if err := md.Convert([]byte(c.Markdown()), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return page.Execute(w, struct {
		Title string
		Body  template.HTML
	}{c.Title, template.HTML(body.String())})
}

func (c *Content) RenderPDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(c.Title, true)
	pdf.SetCreator("nutribox", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(47, 133, 90)
	pdf.CellFormat(0, 10, tr(c.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(97, 110, 124)
	pdf.CellFormat(0, 6, tr(strings.ReplaceAll(c.subtitle(), "·", "-")), "", 1, "L", false, 0, "")

	for _, blk := range c.Blocks {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(39, 103, 73)
		pdf.CellFormat(0, 8, tr(blk.Heading), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(31, 41, 51)
		if blk.Text != "" {
			pdf.MultiCell(0, 6, tr(blk.Text), "", "L", false)
		}
		for _, it := range blk.Items {
			marker := "-"
			if blk.Checklist {
				marker = "[  ]"
			}
			pdf.MultiCell(0, 6, tr(marker+" "+it), "", "L", false)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
