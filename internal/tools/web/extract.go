// Package web implements the web_search and url_fetch tools. Content
// extraction is regex-based against raw HTML rather than a DOM parser,
// matching how the teacher corpus does lightweight readability extraction
// without pulling in an HTML parsing library.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Extractor fetches a URL and pulls out its readable text content.
type Extractor struct {
	client        *http.Client
	limiter       *RateLimiter
	allowLoopback bool
}

// NewExtractor builds an Extractor with SSRF protection enabled and the
// given outbound rate limiter (nil disables limiting).
func NewExtractor(limiter *RateLimiter) *Extractor {
	return &Extractor{client: &http.Client{Timeout: 15 * time.Second}, limiter: limiter}
}

// NewExtractorForTesting disables the loopback/private-IP block so tests can
// point it at an httptest.Server.
func NewExtractorForTesting() *Extractor {
	return &Extractor{client: &http.Client{Timeout: 15 * time.Second}, allowLoopback: true}
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	return ip.Equal(net.ParseIP("169.254.169.254"))
}

func guardAgainstSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("URL must have a hostname")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return fmt.Errorf("URL resolves to a private or reserved IP address")
		}
	}
	return nil
}

// Extract fetches targetURL and returns a readable-text rendering of an HTML
// page, or a text/plain body as it is, capped at 10,000 characters.
func (e *Extractor) Extract(ctx context.Context, targetURL string) (string, error) {
	if !e.allowLoopback {
		if err := guardAgainstSSRF(targetURL); err != nil {
			return "", err
		}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agent-runtime/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	content := string(body)
	if strings.Contains(contentType, "text/html") {
		content = readableContent(content)
	}
	if len(content) > 10_000 {
		content = content[:10_000] + "..."
	}
	return content, nil
}

var (
	stripTagRe  = map[string]*regexp.Regexp{}
	titleRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe      = regexp.MustCompile(`(?is)<meta[^>]*name=["']description["'][^>]*content=["']([^"']*)["']`)
	containerRe = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`),
		regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`),
		regexp.MustCompile(`(?is)<div[^>]*id=["']content["'][^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*role=["']main["'][^>]*>(.*?)</div>`),
	}
	bodyRe      = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	blockTagRe  = regexp.MustCompile(`(?i)</?(?:p|div|h[1-6]|li|br)[^>]*>`)
	anyTagRe    = regexp.MustCompile(`<[^>]*>`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
	innerSpace  = regexp.MustCompile(`[^\S\n]+`)
)

func stripTag(html, tag string) string {
	re, ok := stripTagRe[tag]
	if !ok {
		re = regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		stripTagRe[tag] = re
	}
	return re.ReplaceAllString(html, "")
}

func readableContent(html string) string {
	for _, tag := range []string{"script", "style", "noscript", "iframe", "nav", "header", "footer", "aside"} {
		html = stripTag(html, tag)
	}

	title := ""
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		title = cleanText(m[1])
	}
	description := ""
	if m := descRe.FindStringSubmatch(html); len(m) > 1 {
		description = cleanText(m[1])
	}

	body := ""
	for _, re := range containerRe {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			text := textOnly(m[1])
			if len(strings.TrimSpace(text)) > 200 {
				body = text
				break
			}
		}
	}
	if body == "" {
		if m := bodyRe.FindStringSubmatch(html); len(m) > 1 {
			body = textOnly(m[1])
		}
	}
	body = cleanText(body)

	var sb strings.Builder
	if title != "" {
		sb.WriteString("Title: " + title + "\n\n")
	}
	if description != "" {
		sb.WriteString("Description: " + description + "\n\n")
	}
	sb.WriteString(body)
	return sb.String()
}

func textOnly(html string) string {
	html = blockTagRe.ReplaceAllString(html, "\n")
	return anyTagRe.ReplaceAllString(html, "")
}

func cleanText(text string) string {
	replacer := strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&#39;", "'", "&apos;", "'",
	)
	text = replacer.Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(innerSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
