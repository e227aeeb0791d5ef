package capture

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits raw input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

// Content is the distilled, restorable view of a page.
type Content struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentType string `json:"content_type"`
	Truncated   bool   `json:"truncated"`
}

// Extractor distills page content delivered by the surface into the
// fields a snapshot keeps.
type Extractor struct {
	sanitizer *bluemonday.Policy
	maxText   int64
}

// NewExtractor creates an extractor. maxTextSize bounds the visible
// text kept per page.
func NewExtractor(maxTextSize int64) *Extractor {
	return &Extractor{
		sanitizer: bluemonday.UGCPolicy(),
		maxText:   maxTextSize,
	}
}

// Extract processes raw surface bytes. Non-HTML content yields only the
// detected content type; HTML yields title, description, favicon,
// canonical URL, and clamped visible text.
func (e *Extractor) Extract(raw []byte, baseURL string) (*Content, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("capture: empty content")
	}
	if len(raw) > MaxHTMLSize {
		return nil, fmt.Errorf("capture: content exceeds maximum size of %d bytes", MaxHTMLSize)
	}

	mtype := mimetype.Detect(raw)
	content := &Content{ContentType: mtype.String()}

	switch {
	case mtype.Is("text/html"):
		// handled below
	case strings.HasPrefix(mtype.String(), "text/"):
		content.Text, content.Truncated = e.clampText(string(raw))
		return content, nil
	default:
		// Binary pages keep nothing beyond their type
		return content, nil
	}

	decoded := decodeToUTF8(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("capture: parse failed: %w", err)
	}

	content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	content.Description, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	content.Description = strings.TrimSpace(content.Description)
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		content.Canonical = resolveURL(baseURL, href)
	}
	content.Favicon = e.favicon(doc, baseURL)

	// Open Graph fallbacks via XPath
	if content.Title == "" || content.Canonical == "" {
		e.fillFromOpenGraph(content, decoded, baseURL)
	}
	if content.Title == "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			content.Title = parsed.Host
		}
	}

	// Sanitize before text extraction so scripts, styles, and event
	// handlers never leak into stored text
	sanitized := e.sanitizer.Sanitize(decoded)
	textDoc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err == nil {
		content.Text, content.Truncated = e.clampText(textDoc.Text())
	}

	return content, nil
}

// favicon returns the page icon URL resolved against the base.
func (e *Extractor) favicon(doc *goquery.Document, baseURL string) string {
	for _, sel := range []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`} {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			return resolveURL(baseURL, href)
		}
	}
	if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
		return parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
	}
	return ""
}

// fillFromOpenGraph fills missing fields from og: meta tags.
func (e *Extractor) fillFromOpenGraph(content *Content, decoded, baseURL string) {
	node, err := htmlquery.Parse(strings.NewReader(decoded))
	if err != nil {
		return
	}
	if content.Title == "" {
		if meta := htmlquery.FindOne(node, `//meta[@property="og:title"]`); meta != nil {
			content.Title = strings.TrimSpace(htmlquery.SelectAttr(meta, "content"))
		}
	}
	if content.Canonical == "" {
		if meta := htmlquery.FindOne(node, `//meta[@property="og:url"]`); meta != nil {
			content.Canonical = resolveURL(baseURL, htmlquery.SelectAttr(meta, "content"))
		}
	}
}

// clampText collapses whitespace and enforces the text budget.
func (e *Extractor) clampText(text string) (string, bool) {
	collapsed := strings.Join(strings.Fields(text), " ")
	if e.maxText > 0 && int64(len(collapsed)) > e.maxText {
		return collapsed[:e.maxText], true
	}
	return collapsed, false
}

// DetectCharset detects the charset of raw bytes, defaulting to utf-8.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// decodeToUTF8 converts raw bytes to a UTF-8 string using the detected
// charset, falling back to the bytes as-is.
func decodeToUTF8(data []byte) string {
	detected := DetectCharset(data)
	reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		return string(data)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return string(data)
	}
	return buf.String()
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
