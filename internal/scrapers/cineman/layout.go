package cineman

import (
	"fmt"
	"strings"

	"showtimes-scraper/internal/components/assert"
	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	report_layout_extract = "layout.extract"
	report_layout_listing = "layout.listing"
)

// Layout turns a parsed showtimes page into records. Implementations are the only
// place that knows the markup of a page, so a redesign of the site only touches one.
type Layout interface {
	Extract(doc *goquery.Document, date chrono.Date) ([]Record, error)
}

// ExtractHTML parses markup and hands it to layout.
func ExtractHTML(layout Layout, markup string, date chrono.Date) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return layout.Extract(doc, date)
}

const (
	listingSelector   = "div.col-xs-12.col-sm-9"
	titleSelector     = "h4"
	genreSelector     = "p"
	cinemaSelector    = "h5"
	cinemaNameSel     = "em"
	ageAnchorSelector = "a.link"
	showtimesSelector = "div.showtimes-list"
)

// CinemanLayout is the Layout of the cineman.ch showtimes page.
type CinemanLayout struct {
	tel telemetry.API
}

func NewCinemanLayout(tel telemetry.API) CinemanLayout {
	assert.NotNil("layout telemetry", tel)
	return CinemanLayout{tel: telemetry.NewScopedAPI("cineman", tel)}
}

func (l CinemanLayout) Extract(doc *goquery.Document, date chrono.Date) ([]Record, error) {
	listings := doc.Find(listingSelector)
	l.tel.ReportCount(report_layout_extract, int64(listings.Length()))

	records := make([]Record, 0, listings.Length())
	var err error
	listings.EachWithBreak(func(i int, listing *goquery.Selection) bool {
		var record Record
		record, err = l.extractListing(i, listing, date)
		if err != nil {
			l.tel.ReportBroken(report_layout_extract, err)
			return false
		}
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func mismatch(listing int, format string, args ...any) error {
	return fmt.Errorf("%w: listing %d: %s", ErrLayoutMismatch, listing, fmt.Sprintf(format, args...))
}

func (l CinemanLayout) extractListing(i int, listing *goquery.Selection, date chrono.Date) (Record, error) {
	title := listing.Find(titleSelector).First()
	if title.Length() == 0 {
		return Record{}, mismatch(i, "no %s title", titleSelector)
	}
	genre := listing.Find(genreSelector).First()
	if genre.Length() == 0 {
		return Record{}, mismatch(i, "no %s genre", genreSelector)
	}

	record := Record{
		Movie: htmlutil.Text(title),
		Genre: htmlutil.Text(genre),
		Date:  date,
	}

	var err error
	listing.Find(cinemaSelector).EachWithBreak(func(j int, cinema *goquery.Selection) bool {
		name := cinema.Find(cinemaNameSel).First()
		if name.Length() == 0 {
			err = mismatch(i, "cinema %d has no %s name", j, cinemaNameSel)
			return false
		}
		anchors := cinema.Find("a")
		if anchors.Length() < 2 {
			err = mismatch(i, "cinema %d has %d anchors, expected the place in the second", j, anchors.Length())
			return false
		}
		record.Cinemas = append(record.Cinemas, htmlutil.Text(name))
		record.Places = append(record.Places, htmlutil.Text(anchors.Eq(1)))
		return true
	})
	if err != nil {
		return Record{}, err
	}

	var anchorTexts []string
	listing.Find(ageAnchorSelector).Each(func(_ int, a *goquery.Selection) {
		anchorTexts = append(anchorTexts, htmlutil.Text(a))
	})
	record.AgeLimit = ClassifyAgeLimit(anchorTexts)

	showtimesList := listing.Find(showtimesSelector).First()
	if showtimesList.Length() == 0 {
		return Record{}, mismatch(i, "no %s", showtimesSelector)
	}
	for _, segment := range splitSegments(showtimesList.Nodes[0]) {
		showtimes, languages := classifyTokens(segment)
		if len(showtimes) > 0 {
			record.Showtimes = append(record.Showtimes, showtimes)
		}
		if len(languages) > 0 {
			record.Languages = append(record.Languages, languages)
		}
	}

	if len(record.Showtimes) != len(record.Cinemas) || len(record.Languages) != len(record.Cinemas) {
		l.tel.ReportWarning(
			report_layout_listing,
			fmt.Errorf("showtime segments do not line up with cinemas"),
			record.Movie,
			len(record.Cinemas),
			len(record.Showtimes),
			len(record.Languages),
		)
	}

	return record, nil
}

// splitSegments returns the text of root split at both the start and the end of every
// cinema heading, so each heading's own text and the showtimes following it are separate.
func splitSegments(root *html.Node) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		segments = append(segments, current.String())
		current.Reset()
	}

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			current.WriteString(node.Data)
			current.WriteByte(' ')
			return
		case html.ElementNode:
			if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
				return
			}
		}

		boundary := node.Type == html.ElementNode && node.DataAtom == atom.H5
		if boundary {
			flush()
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if boundary {
			flush()
		}
	}

	for child := root.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	flush()

	return segments
}
