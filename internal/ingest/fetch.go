package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

const defaultFetchTimeout = 30 * time.Second

var errBlockedAddress = stderrors.New("address is not publicly routable")

// Fetcher downloads job descriptions referenced by URL.
type Fetcher struct {
	client     *http.Client
	opts       Options
	publicOnly bool
}

// NewFetcher returns a Fetcher with an instrumented client. A nil client
// gets a default one with timeout that only dials public addresses, checked
// after DNS resolution. A caller-supplied client is used as is.
func NewFetcher(client *http.Client, timeout time.Duration, opts Options) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	publicOnly := client == nil
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(publicTransport()),
		}
	}
	opts.AllowHTML = true
	return &Fetcher{client: client, opts: opts, publicOnly: publicOnly}
}

// publicTransport is the default transport without proxy support, dialing
// through publicAddressControl.
func publicTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicAddressControl,
	}
	t.DialContext = dialer.DialContext
	return t
}

func publicAddressControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

// isPublicAddr rejects loopback, private, link-local, multicast and
// unspecified addresses.
func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsValid() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified()
}

func blockedURL(rawURL string, cause error) error {
	return errors.NewValidationError(errors.ErrCodeInvalidContext,
		fmt.Sprintf("job description URL %q points to a non-public address", rawURL), cause)
}

// Fetch downloads rawURL and ingests it. PDFs are reduced to their text layer
// so the result always carries Content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidContext,
			fmt.Sprintf("job description URL %q is not an http(s) URL", rawURL), err)
	}

	if ip, perr := netip.ParseAddr(u.Hostname()); perr == nil && f.publicOnly && !isPublicAddr(ip) {
		return Document{}, blockedURL(rawURL, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, errors.NewNetworkError(errors.ErrCodeInvalidRequest,
			"could not build job description request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if stderrors.Is(err, errBlockedAddress) {
			return Document{}, blockedURL(rawURL, err)
		}
		return Document{}, errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			"job description download failed", err).WithContext("url", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Document{}, errors.NewNetworkError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("job description download returned HTTP %d", resp.StatusCode), nil).
			WithContext("url", rawURL)
	}

	limit := f.opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Document{}, errors.NewNetworkError(errors.ErrCodeFileNotReadable,
			"job description download was interrupted", err)
	}

	name := path.Base(u.Path)
	if ext := extensionForContentType(resp.Header.Get("Content-Type")); ext != "" && path.Ext(name) == "" {
		name += ext
	}

	doc, err := Ingest(name, body, f.opts)
	if err != nil {
		return Document{}, err
	}
	if doc.IsPDF() {
		text, err := ExtractPDFText(doc.Data)
		if err != nil {
			return Document{}, err
		}
		doc.Content = text
		doc.Data = nil
		doc.MimeType = MimeText
	}
	return doc, nil
}

func extensionForContentType(contentType string) string {
	switch stripParams(contentType) {
	case MimePDF:
		return ".pdf"
	case MimeHTML:
		return ".html"
	case MimeText:
		return ".txt"
	case MimeMarkdown:
		return ".md"
	}
	return ""
}
