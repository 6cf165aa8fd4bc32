package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

const (
	defaultFetchMaxBytes = 10 << 20 // 10MB
	defaultFetchTimeout  = 10 * time.Second

	// DefaultUserAgent is sent on every media download. Some hosts reject
	// Go's default client identifier outright.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// FetchReason classifies why a fetch failed.
type FetchReason string

const (
	FetchReasonNetwork    FetchReason = "network"
	FetchReasonHTTPStatus FetchReason = "http_status"
	FetchReasonDecode     FetchReason = "decode"
)

// FetchError reports a failed media download or decode.
type FetchError struct {
	Reason FetchReason
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodedImage is a downloaded image decoded into memory. It lives for one
// pipeline run and is discarded afterwards; only derived values (score,
// fingerprint, metadata fields) are persisted.
type DecodedImage struct {
	Image  image.Image
	Width  int
	Height int

	// Raw holds the undecoded response body, kept for metadata extraction.
	Raw      []byte
	MIMEType string
}

// Fetcher downloads remote media and decodes it into a pixel buffer.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	timeout   time.Duration
}

// FetcherOptions configures a Fetcher. Zero values mean defaults.
type FetcherOptions struct {
	Client    *http.Client // nil = http.DefaultClient
	UserAgent string
	MaxBytes  int64
	Timeout   time.Duration
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		timeout:   opts.Timeout,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.maxBytes <= 0 {
		f.maxBytes = defaultFetchMaxBytes
	}
	if f.timeout <= 0 {
		f.timeout = defaultFetchTimeout
	}
	return f
}

// Fetch downloads the media at url and decodes it. No retries: any failure
// is terminal for the surrounding pipeline run. The returned error is
// always a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*DecodedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Reason: FetchReasonNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req) //nolint:gosec // URL is caller-supplied by design
	if err != nil {
		return nil, &FetchError{Reason: FetchReasonNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Reason: FetchReasonHTTPStatus,
			URL:    url,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &FetchError{Reason: FetchReasonNetwork, URL: url, Err: err}
	}

	// The content-type header is advisory only; hosts lie, and the body may
	// be anything at all. image.Decode is the authority.
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{Reason: FetchReasonDecode, URL: url, Err: err}
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/" + format
	}

	bounds := img.Bounds()
	return &DecodedImage{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Raw:      data,
		MIMEType: mime,
	}, nil
}
