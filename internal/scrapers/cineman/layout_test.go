package cineman

import (
	"os"
	"strings"
	"testing"
	"time"

	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testDate = chrono.Date{Year: 2024, Month: time.March, Day: 1}

func readFixture(t testing.TB, name string) string {
	contents, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(contents)
}

func TestExtractTwoListings(t *testing.T) {
	tel := &telemetry.MemoryAPI{}
	records, err := ExtractHTML(NewCinemanLayout(tel), readFixture(t, "two_listings.html"), testDate)
	require.NoError(t, err)

	expected := []Record{
		{
			Movie:     "Dune: Part Two",
			Genre:     "Science Fiction, Adventure",
			AgeLimit:  "Y.12 (14)",
			Cinemas:   []string{"Arena Cinemas Sihlcity"},
			Places:    []string{"Zürich"},
			Showtimes: [][]string{{"18:00", "20:30"}},
			Languages: [][]string{{"E/d/f", "F"}},
			Date:      testDate,
		},
		{
			Movie:     "Wicked",
			Genre:     "Musical, Fantasy",
			AgeLimit:  AgeUnknown,
			Cinemas:   []string{"Arena", "Kinepolis"},
			Places:    []string{"Zürich", "Schaffhausen"},
			Showtimes: [][]string{{"17:15"}, {"21:00"}},
			Languages: [][]string{{"D/f"}, {"E/d"}},
			Date:      testDate,
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}

	require.Empty(t, tel.Reports("broken"))
	require.Empty(t, tel.Reports("warning"))
}

func TestExtractKeepsDesyncedSegments(t *testing.T) {
	// the second cinema has no recognizable language, its language list is dropped
	markup := `
	<div class="col-xs-12 col-sm-9">
		<h4>Oppenheimer</h4>
		<p>Drama</p>
		<div class="showtimes-list">
			<h5><a href="#"><em>Arena</em></a> <a href="#">Zürich</a></h5>
			<span>19:00</span> <span>E/d/f</span>
			<h5><a href="#"><em>Rex</em></a> <a href="#">Bern</a></h5>
			<span>20:00</span> <span>OV</span>
		</div>
		<a class="link" href="#">Y.14</a>
	</div>`

	tel := &telemetry.MemoryAPI{}
	records, err := ExtractHTML(NewCinemanLayout(tel), markup, testDate)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Equal(t, "Y.14", records[0].AgeLimit)
	require.Equal(t, [][]string{{"19:00"}, {"20:00"}}, records[0].Showtimes)
	require.Equal(t, [][]string{{"E/d/f"}}, records[0].Languages)
	require.Len(t, tel.Reports("warning"), 1)
}

func TestExtractLayoutMismatch(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
	}{
		{
			name:   "missing title",
			markup: `<div class="col-xs-12 col-sm-9"><p>Drama</p><div class="showtimes-list"></div></div>`,
		},
		{
			name:   "missing genre",
			markup: `<div class="col-xs-12 col-sm-9"><h4>Title</h4><div class="showtimes-list"></div></div>`,
		},
		{
			name: "cinema without name",
			markup: `<div class="col-xs-12 col-sm-9"><h4>Title</h4><p>Drama</p>
				<div class="showtimes-list"><h5><a href="#">Arena</a><a href="#">Bern</a></h5></div></div>`,
		},
		{
			name: "cinema without place",
			markup: `<div class="col-xs-12 col-sm-9"><h4>Title</h4><p>Drama</p>
				<div class="showtimes-list"><h5><a href="#"><em>Arena</em></a></h5></div></div>`,
		},
		{
			name:   "missing showtimes list",
			markup: `<div class="col-xs-12 col-sm-9"><h4>Title</h4><p>Drama</p></div>`,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tel := &telemetry.MemoryAPI{}
			_, err := ExtractHTML(NewCinemanLayout(tel), test.markup, testDate)
			require.ErrorIs(t, err, ErrLayoutMismatch)
			require.Len(t, tel.Reports("broken"), 1)
		})
	}
}

func TestExtractNoListings(t *testing.T) {
	records, err := ExtractHTML(NewCinemanLayout(&telemetry.MemoryAPI{}), `<html><body></body></html>`, testDate)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSplitSegments(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div id="list">a<h5>b <em>c</em></h5>d<span>e</span><h5>f</h5></div>`,
	))
	require.NoError(t, err)

	segments := splitSegments(doc.Find("#list").Nodes[0])
	for i := range segments {
		segments[i] = strings.Join(strings.Fields(segments[i]), " ")
	}
	require.Equal(t, []string{"a", "b c", "d e", "f", ""}, segments)
}
