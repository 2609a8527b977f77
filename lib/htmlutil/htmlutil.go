package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// script and style contents never render as text
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// NormalizeText trims text and collapses inner runs of whitespace into a single space.
func NormalizeText(text string) string {
	text = removeNonPrintable(text)
	text = strings.TrimSpace(text)
	text = innerWhitespace.ReplaceAllString(text, " ")
	return text
}

// Text returns the normalized text of the first node of sel, "" if sel is empty.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return NormalizeText(GetText(sel.Nodes[0]))
}
