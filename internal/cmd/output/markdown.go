package output

import (
	"io"
	"strings"

	md "github.com/nao1215/markdown"
)

// MarkdownFormatter outputs GitHub-flavored markdown, e.g. for a CI job
// summary.
type MarkdownFormatter struct {
	// Title is written as a level 2 heading when set.
	Title string
}

// Format writes Data and Tabular values as a markdown table with the footer
// quoted below it. Other values are written as a JSON code block.
func (f *MarkdownFormatter) Format(w io.Writer, data any) error {
	var table Data
	switch v := data.(type) {
	case Data:
		table = v
	case *Data:
		table = *v
	case Tabular:
		table = v.TableData(true)
	default:
		var buf strings.Builder
		if err := (&JSONFormatter{Indent: "  "}).Format(&buf, data); err != nil {
			return err
		}
		return md.NewMarkdown(w).CodeBlocks(md.SyntaxHighlight("json"), buf.String()).Build()
	}

	doc := md.NewMarkdown(w)
	if f.Title != "" {
		doc.H2(f.Title).LF()
	}
	doc.Table(md.TableSet{
		Header: table.Headers,
		Rows:   table.Rows,
	})
	if table.Footer != "" {
		doc.LF().Blockquote(table.Footer)
	}
	return doc.Build()
}
