package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response or error and records the request.
type stubHTTPClient struct {
	resp    httpclient.Response
	err     error
	gotURL  string
	headers map[string]string
}

func (s *stubHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	s.gotURL = url
	s.headers = headers
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

const articleHTML = `
<html>
  <head><title>Eiffel Tower - Wikipedia</title><style>.x{}</style></head>
  <body>
    <nav><p>Navigation menu that is long enough to pass the length filter easily.</p></nav>
    <h1 id="firstHeading">Eiffel Tower</h1>
    <div id="mw-content-text">
      <p>The Eiffel Tower is a wrought-iron lattice tower<sup>[1]</sup> on the Champ de Mars in Paris.</p>
      <p>Too short.</p>
      <table><tr><td><p>Infobox text that should be stripped entirely from the body.</p></td></tr></table>
      <h2><span class="mw-headline">History</span></h2>
      <p>It was   named after the engineer
         Gustave Eiffel, whose company designed and built the tower.</p>
      <script>var p = "<p>script paragraph that must never appear in the body</p>";</script>
      <h3><span class="mw-headline">Design</span></h3>
      <h2>Heading without a label marker</h2>
      <div class="mw-heading mw-heading2"><h2 id="Legacy">Legacy</h2></div>
    </div>
  </body>
</html>`

func TestParseExtractsTitleBodyAndSections(t *testing.T) {
	article, err := Parse([]byte(articleHTML), "https://en.wikipedia.org/wiki/Eiffel_Tower")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if article.Title != "Eiffel Tower" {
		t.Fatalf("title = %q", article.Title)
	}
	if article.URL != "https://en.wikipedia.org/wiki/Eiffel_Tower" {
		t.Fatalf("url = %q", article.URL)
	}

	lines := strings.Split(article.Body, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(lines), article.Body)
	}
	if lines[0] != "The Eiffel Tower is a wrought-iron lattice tower on the Champ de Mars in Paris." {
		t.Fatalf("unexpected first paragraph %q", lines[0])
	}
	if lines[1] != "It was named after the engineer Gustave Eiffel, whose company designed and built the tower." {
		t.Fatalf("whitespace not normalized: %q", lines[1])
	}
	for _, banned := range []string{"[1]", "Infobox", "script paragraph", "Navigation menu"} {
		if strings.Contains(article.Body, banned) {
			t.Fatalf("body contains noise %q: %q", banned, article.Body)
		}
	}

	want := []string{"History", "Design", "Legacy"}
	if strings.Join(article.Sections, "|") != strings.Join(want, "|") {
		t.Fatalf("sections = %v, want %v", article.Sections, want)
	}
}

func TestParseDropsParagraphsOfFortyCharsOrLess(t *testing.T) {
	forty := strings.Repeat("a", 40)
	fortyOne := strings.Repeat("b", 41)
	html := fmt.Sprintf(`<div id="mw-content-text"><p>%s</p><p>  %s  </p></div>`, forty, fortyOne)

	article, err := Parse([]byte(html), "u")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if article.Body != fortyOne {
		t.Fatalf("body = %q", article.Body)
	}
}

func TestParseSeparatesTextAcrossLineBreaks(t *testing.T) {
	html := `<div id="mw-content-text"><p>The first line ends here<br>and the second line <a href="/wiki/X">links</a><b>onward</b> to more text.</p></div>`

	article, err := Parse([]byte(html), "u")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "The first line ends here and the second line links onward to more text."
	if article.Body != want {
		t.Fatalf("body = %q, want %q", article.Body, want)
	}
}

func TestParseCapsSectionsAtTen(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<div id="mw-content-text">`)
	for i := 0; i < 14; i++ {
		fmt.Fprintf(&sb, `<h2><span class="mw-headline">S%02d</span></h2>`, i)
	}
	sb.WriteString(`</div>`)

	article, err := Parse([]byte(sb.String()), "u")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(article.Sections) != 10 {
		t.Fatalf("expected 10 sections, got %d", len(article.Sections))
	}
	for i, s := range article.Sections {
		if s != fmt.Sprintf("S%02d", i) {
			t.Fatalf("section %d = %q, order not preserved", i, s)
		}
	}
}

func TestParseWithoutContainerIsLenient(t *testing.T) {
	article, err := Parse([]byte(`<html><body><p>A paragraph outside of any content container at all.</p></body></html>`), "u")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if article.Title != domain.UnknownTitle {
		t.Fatalf("title = %q", article.Title)
	}
	if article.Body != "" || len(article.Sections) != 0 {
		t.Fatalf("expected empty body and sections, got %#v", article)
	}
	if article.Sections == nil {
		t.Fatalf("sections should be an empty slice, not nil")
	}
}

func TestExtractFetchesWithUserAgent(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: []byte(articleHTML), statusCode: 200}}
	ex := New(client, nil)

	article, err := ex.Extract(context.Background(), "https://en.wikipedia.org/wiki/Eiffel_Tower")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Title != "Eiffel Tower" {
		t.Fatalf("title = %q", article.Title)
	}
	if client.headers["User-Agent"] != UserAgent {
		t.Fatalf("User-Agent header = %q", client.headers["User-Agent"])
	}
}

func TestExtractNonSuccessStatusIsFetchError(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: []byte("gone"), statusCode: 404}}
	_, err := New(client, nil).Extract(context.Background(), "https://en.wikipedia.org/wiki/Missing")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != 404 {
		t.Fatalf("status = %d", fetchErr.StatusCode)
	}
}

func TestExtractTransportErrorIsFetchError(t *testing.T) {
	boom := errors.New("dial tcp: timeout")
	_, err := New(&stubHTTPClient{err: boom}, nil).Extract(context.Background(), "https://example.test")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped FetchError, got %v", err)
	}
}

func TestExtractDefaultClientRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		chunk := []byte(strings.Repeat("<p>filler</p>", 1024))
		for written := 0; written <= MaxHTMLBodyBytes; written += len(chunk) {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	_, err := New(nil, nil).Extract(context.Background(), srv.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || !errors.Is(err, httpclient.ErrBodyTooLarge) {
		t.Fatalf("expected FetchError wrapping ErrBodyTooLarge, got %v", err)
	}
}

func TestExtractRejectsEmptyURL(t *testing.T) {
	client := &stubHTTPClient{}
	if _, err := New(client, nil).Extract(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if client.gotURL != "" {
		t.Fatalf("client should not be called for empty url")
	}
}

func TestBodySnippet(t *testing.T) {
	if got := bodySnippet(nil); got != "<empty>" {
		t.Fatalf("bodySnippet(nil) = %q", got)
	}
	long := strings.Repeat("x", 600)
	if got := bodySnippet([]byte(long)); len(got) != 515 {
		t.Fatalf("expected truncated snippet, got len %d", len(got))
	}
}
