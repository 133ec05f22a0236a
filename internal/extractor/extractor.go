package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
	"github.com/samvad-hq/wikiquiz/pkg/httpclient"
)

const (
	MaxHTMLBodyBytes    = 4 << 20 // 4 MiB
	minParagraphRunes   = 41
	maxSections         = 10
	DefaultFetchTimeout = 15 * time.Second
	UserAgent           = "WikiQuizBot/1.0"

	noiseSelector      = "script, style, sup, table, nav"
	contentSelector    = "div#mw-content-text"
	titleSelector      = "h1#firstHeading"
	headlineSelector   = "span.mw-headline"
	modernHeadingClass = "mw-heading"
)

// Extractor fetches article pages and turns them into ArticleContent.
type Extractor struct {
	client httpclient.Client
	log    logger.Logger
}

// New constructs an extractor with the provided HTTP client (or a default resty client).
func New(client httpclient.Client, log logger.Logger) *Extractor {
	if client == nil {
		client = httpclient.NewRestyClient(DefaultFetchTimeout, UserAgent).WithBodyLimit(MaxHTMLBodyBytes)
	}
	return &Extractor{client: client, log: logger.Ensure(log)}
}

// Extract downloads url and parses the article markup.
func (e *Extractor) Extract(ctx context.Context, url string) (domain.ArticleContent, error) {
	if strings.TrimSpace(url) == "" {
		return domain.ArticleContent{}, &FetchError{URL: url, Err: errors.New("url is empty")}
	}

	resp, err := e.client.Get(ctx, url, map[string]string{"User-Agent": UserAgent})
	if err != nil {
		return domain.ArticleContent{}, &FetchError{URL: url, Err: err}
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return domain.ArticleContent{}, &FetchError{
			URL:        url,
			StatusCode: code,
			Err:        fmt.Errorf("unexpected status, body: %s", bodySnippet(resp.Body())),
		}
	}

	body := resp.Body()
	if len(body) > MaxHTMLBodyBytes {
		body = body[:MaxHTMLBodyBytes]
	}

	article, err := Parse(body, url)
	if err != nil {
		return domain.ArticleContent{}, err
	}

	e.log.DebugObj("article extracted", "article_meta", map[string]any{
		"url":        url,
		"title":      article.Title,
		"sections":   len(article.Sections),
		"body_chars": utf8.RuneCountInString(article.Body),
	})
	return article, nil
}

// Parse extracts the title, section headings and cleaned body from raw markup.
// A missing content container yields empty sections and body rather than an error.
func Parse(raw []byte, url string) (domain.ArticleContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return domain.ArticleContent{}, &ParseError{URL: url, Err: err}
	}

	article := domain.ArticleContent{
		URL:      url,
		Title:    domain.UnknownTitle,
		Sections: []string{},
	}
	if title := strings.TrimSpace(doc.Find(titleSelector).First().Text()); title != "" {
		article.Title = title
	}

	doc.Find(noiseSelector).Remove()

	container := doc.Find(contentSelector).First()
	if container.Length() == 0 {
		return article, nil
	}

	article.Body = strings.Join(paragraphs(container), "\n")
	article.Sections = sections(container)
	return article, nil
}

func paragraphs(container *goquery.Selection) []string {
	var out []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := normalizeSpace(spacedText(p))
		if utf8.RuneCountInString(text) >= minParagraphRunes {
			out = append(out, text)
		}
	})
	return out
}

func sections(container *goquery.Selection) []string {
	out := []string{}
	container.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		label := headingLabel(h)
		if label != "" {
			out = append(out, label)
		}
		return len(out) < maxSections
	})
	return out
}

// headingLabel returns the label of a section heading. Older markup wraps it in
// span.mw-headline; current markup wraps the heading in div.mw-heading instead.
func headingLabel(h *goquery.Selection) string {
	if span := h.Find(headlineSelector).First(); span.Length() > 0 {
		return normalizeSpace(span.Text())
	}
	if h.Parent().HasClass(modernHeadingClass) {
		return normalizeSpace(h.Text())
	}
	return ""
}

// spacedText joins the element's text nodes with single spaces, so inline
// breaks such as <br> still separate words.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		var text string
		if goquery.NodeName(node) == "#text" {
			text = node.Text()
		} else {
			text = spacedText(node)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func bodySnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
