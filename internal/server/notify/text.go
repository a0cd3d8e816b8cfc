package notify

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlToText renders the plain text alternative of an HTML email.
// Paragraph-like elements become blank-line separated paragraphs and links
// keep their target in brackets unless the link text already is the target.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		paras     []string
		words     []string
		skip      int
		href      string
		linkStart int
	)

	flush := func() {
		if len(words) > 0 {
			paras = append(paras, strings.Join(words, " "))
			words = words[:0]
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return strings.Join(paras, "\n\n")

		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, w := range strings.Fields(string(z.Text())) {
				// punctuation sticks to the previous word
				if len(words) > 0 && strings.ContainsRune(".,;:!?", rune(w[0])) {
					words[len(words)-1] += w
					continue
				}
				words = append(words, w)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Head, atom.Style, atom.Script:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.A:
				href, linkStart = "", len(words)
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
			case atom.P, atom.Br, atom.Div, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3:
				flush()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Head, atom.Style, atom.Script:
				if skip > 0 {
					skip--
				}
			case atom.A:
				if linkStart <= len(words) && href != "" && strings.Join(words[linkStart:], " ") != href {
					words = append(words, "["+href+"]")
				}
				href = ""
			case atom.P, atom.Div, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3:
				flush()
			}
		}
	}
}
