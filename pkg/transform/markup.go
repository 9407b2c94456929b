package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags are elements whose boundaries break the text flow.
var blockTags = map[string]bool{
	"p": true, "div": true, "ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// paragraphTags get a blank line around them in structured output.
var paragraphTags = map[string]bool{
	"p": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripMarkup removes all markup, keeping text content. Runs of
// whitespace collapse to single spaces; block boundaries become line
// breaks. Entities are decoded. Malformed markup never fails; the
// tokenizer recovers with whatever text it can extract.
func StripMarkup(s string) string {
	return renderMarkup(s, renderOpts{})
}

// StripMarkupKeepCode is StripMarkup except that text inside <code> and
// <pre> elements is kept verbatim, whitespace included.
func StripMarkupKeepCode(s string) string {
	return renderMarkup(s, renderOpts{keepCode: true})
}

// MarkupToText renders markup as structured plain text: paragraphs and
// headings separated by blank lines, list items as "- " bullets, <br>
// as a line break.
func MarkupToText(s string) string {
	return renderMarkup(s, renderOpts{structured: true, keepCode: true})
}

type renderOpts struct {
	keepCode   bool
	structured bool
}

func renderMarkup(s string, o renderOpts) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	var (
		verbatim     int  // <pre>/<code> nesting depth when keepCode
		skip         int  // <script>/<style> nesting depth
		pendingBreak int  // newlines owed before the next text
		pendingSpace bool // inter-word space owed before the next text
		bullet       bool // "- " owed before the next text
	)

	flushSeparators := func() {
		if b.Len() > 0 {
			if pendingBreak > 0 {
				if pendingBreak > 2 {
					pendingBreak = 2
				}
				b.WriteString(strings.Repeat("\n", pendingBreak))
			} else if pendingSpace {
				b.WriteByte(' ')
			}
		}
		pendingBreak = 0
		pendingSpace = false
		if bullet {
			b.WriteString("- ")
			bullet = false
		}
	}

	breakLine := func(n int) {
		if n > pendingBreak {
			pendingBreak = n
		}
	}

loop:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			break loop

		case html.TextToken:
			if skip > 0 {
				continue
			}
			raw := string(z.Text())
			if verbatim > 0 {
				flushSeparators()
				b.WriteString(raw)
				continue
			}
			words := strings.Fields(raw)
			if len(words) == 0 {
				// Whitespace-only token still separates words.
				if raw != "" && b.Len() > 0 {
					pendingSpace = true
				}
				continue
			}
			if len(raw) > 0 && isSpace(raw[0]) {
				pendingSpace = true
			}
			flushSeparators()
			b.WriteString(strings.Join(words, " "))
			if isSpace(raw[len(raw)-1]) {
				pendingSpace = true
			}

		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch tag {
			case "script", "style":
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case "br":
				breakLine(1)
			case "code":
				if o.keepCode {
					if tt == html.StartTagToken {
						verbatim++
					} else if tt == html.EndTagToken && verbatim > 0 {
						verbatim--
					}
				}
			case "pre":
				breakLine(1)
				if o.keepCode {
					if tt == html.StartTagToken {
						verbatim++
					} else if tt == html.EndTagToken && verbatim > 0 {
						verbatim--
					}
				}
			case "li":
				breakLine(1)
				if o.structured && tt == html.StartTagToken {
					bullet = true
				}
			default:
				if blockTags[tag] {
					if o.structured && paragraphTags[tag] {
						breakLine(2)
					} else {
						breakLine(1)
					}
				}
			}
		}
	}

	return strings.TrimSpace(b.String())
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
