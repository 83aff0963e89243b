// Package pinterest resolves a pin page to its image and downloads it.
package pinterest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	DefaultPageTimeout  = 10 * time.Second
	DefaultImageTimeout = 15 * time.Second
	maxPageSize         = 8 << 20
)

var (
	ErrInvalidURL    = errors.New("invalid pinterest pin url")
	ErrImageNotFound = errors.New("could not extract image url from pinterest page")
	ErrFetchFailed   = errors.New("pinterest fetch failed")
)

var pinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?pinterest\.com/pin/\d+`),
	regexp.MustCompile(`^https?://(ar|es|br|mx)\.pinterest\.com/pin/\d+`),
	regexp.MustCompile(`^https?://pin\.it/[a-zA-Z0-9]+`),
}

// Tried in order; the first absolute http(s) match wins.
var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"url":\s*"([^"]+\.(?:jpg|jpeg|png|webp|gif)(?:\?[^"]*)?)"`),
	regexp.MustCompile(`property="og:image"\s+content="([^"]+)"`),
	regexp.MustCompile(`"contentUrl":\s*"([^"]+\.(?:jpg|jpeg|png|webp|gif)(?:\?[^"]*)?)"`),
	regexp.MustCompile(`data-test-id="pin-image"[^>]+src="([^"]+)"`),
}

var unescaper = strings.NewReplacer(`\u002F`, "/", `\/`, "/", `\"`, `"`)

// IsValidURL reports whether url points at a pin.
func IsValidURL(url string) bool {
	for _, p := range pinPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// ExtractImageURL finds the pin image address in the page HTML.
func ExtractImageURL(html string) (string, error) {
	for _, p := range imagePatterns {
		m := p.FindStringSubmatch(html)
		if len(m) < 2 {
			continue
		}
		u := unescaper.Replace(m[1])
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u, nil
		}
	}
	return "", ErrImageNotFound
}

type Client struct {
	http         *http.Client
	pageTimeout  time.Duration
	imageTimeout time.Duration
	maxImageSize int64
	logger       *slog.Logger
}

func NewClient(pageTimeout, imageTimeout time.Duration, maxImageSize int64, logger *slog.Logger) *Client {
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}
	if imageTimeout <= 0 {
		imageTimeout = DefaultImageTimeout
	}
	return &Client{
		http:         &http.Client{},
		pageTimeout:  pageTimeout,
		imageTimeout: imageTimeout,
		maxImageSize: maxImageSize,
		logger:       logger.With(slog.String("component", "pinterest")),
	}
}

// ResolveImageURL fetches the pin page and extracts its image address.
func (c *Client) ResolveImageURL(ctx context.Context, pinURL string) (string, error) {
	if !IsValidURL(pinURL) {
		return "", ErrInvalidURL
	}

	page, err := c.get(ctx, pinURL, c.pageTimeout, maxPageSize, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return "", err
	}

	imageURL, err := ExtractImageURL(string(page))
	if err != nil {
		return "", err
	}
	c.logger.Debug("pin image resolved", slog.String("pin", pinURL), slog.String("image", imageURL))
	return imageURL, nil
}

// Download fetches the image bytes.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	return c.get(ctx, imageURL, c.imageTimeout, c.maxImageSize, map[string]string{
		"Referer": "https://pinterest.com/",
	})
}

// Fetch resolves and downloads the image behind a pin. It returns the bytes
// and the resolved image URL.
func (c *Client) Fetch(ctx context.Context, pinURL string) ([]byte, string, error) {
	imageURL, err := c.ResolveImageURL(ctx, pinURL)
	if err != nil {
		return nil, "", err
	}
	data, err := c.Download(ctx, imageURL)
	if err != nil {
		return nil, "", err
	}
	return data, imageURL, nil
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration, limit int64, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, url, resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetchFailed, url, limit)
	}
	return body, nil
}
