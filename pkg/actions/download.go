package actions

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
)

// DefaultDownloadTimeout bounds a single invoice download.
const DefaultDownloadTimeout = 60 * time.Second

// Headers sent with every download request.
var downloadHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Accept-Encoding": "gzip, deflate",
	"Connection":      "keep-alive",
}

// HostMatcher decides which hosts invoice files may be fetched from.
type HostMatcher struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewHostMatcher compiles host glob patterns such as "*.stripe.com".
// Matching uses '.' as the separator, so "*" spans exactly one label.
func NewHostMatcher(allowed, denied []string) (*HostMatcher, error) {
	hm := &HostMatcher{}

	for _, pattern := range allowed {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		hm.allowed = append(hm.allowed, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		hm.denied = append(hm.denied, g)
	}

	return hm, nil
}

// IsAllowed reports whether host may be contacted. Denied patterns win;
// with no allowed patterns every other host is allowed.
func (hm *HostMatcher) IsAllowed(host string) bool {
	if hm == nil {
		return true
	}
	host = strings.ToLower(host)

	for _, pattern := range hm.denied {
		if pattern.Match(host) {
			return false
		}
	}

	if len(hm.allowed) == 0 {
		return true
	}

	for _, pattern := range hm.allowed {
		if pattern.Match(host) {
			return true
		}
	}

	return false
}

// DownloadAction fetches an invoice file by direct HTTP GET and streams it
// into the artifact store.
type DownloadAction struct {
	deps *Deps
}

func (a *DownloadAction) Name() string { return DownloadName }

func (a *DownloadAction) Description() string {
	return "Download an invoice file (usually a PDF) from a direct link and save it under the vendor's name. " +
		"Use the absolute URL of the file, not of the page showing it."
}

func (a *DownloadAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"vendor_name": map[string]interface{}{
				"type":        "string",
				"description": "Vendor the invoice is from, used in the file name",
			},
			"file_url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute http(s) URL of the invoice file",
			},
		},
		[]string{"vendor_name", "file_url"},
	)
}

func (a *DownloadAction) IsLoopBreaking() bool { return false }

// Execute never returns an error; failures are reported in the result text.
func (a *DownloadAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Vendor  string   `xml:"vendor_name"`
		FileURL string   `xml:"file_url"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		return a.fail("", err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Error downloading invoice: invalid arguments: %v", err), nil, nil
	}
	fileURL := strings.TrimSpace(args.FileURL)

	a.deps.Console.Step("Downloading invoice from: %s", fileURL)
	saved, err := a.download(ctx, args.Vendor, fileURL)
	if err != nil {
		return a.fail(fileURL, err)
	}

	meta := map[string]interface{}{
		"path":  saved.Path,
		"bytes": saved.Bytes,
	}
	result := fmt.Sprintf("Invoice file downloaded as %s", saved.Path)
	if pages, ok := pdfPages(saved.Path); ok {
		meta["pages"] = pages
		result = fmt.Sprintf("%s (%d pages)", result, pages)
	}

	a.deps.Console.Success("Invoice downloaded: %s", saved.Path)
	return result, meta, nil
}

func (a *DownloadAction) fail(fileURL string, err error) (string, map[string]interface{}, error) {
	a.deps.Logger.Errorf("Download of %s failed: %v", fileURL, err)
	a.deps.Console.Failure("Error downloading invoice: %v", err)
	return fmt.Sprintf("Error downloading invoice: %v", err), nil, nil
}

func (a *DownloadAction) download(ctx context.Context, vendor, fileURL string) (artifact.Artifact, error) {
	u, err := url.Parse(fileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return artifact.Artifact{}, fmt.Errorf("invalid file URL %q", fileURL)
	}
	if err := a.checkHost(u); err != nil {
		return artifact.Artifact{}, err
	}

	target, err := a.deps.Store.DeriveName(vendor, artifact.KindFileDownload, artifact.ExtFromURL(fileURL))
	if err != nil {
		return artifact.Artifact{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range downloadHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.client().Do(req)
	if err != nil {
		var hostErr *HostNotAllowedError
		if errors.As(err, &hostErr) {
			return artifact.Artifact{}, hostErr
		}
		return artifact.Artifact{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return artifact.Artifact{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return artifact.Artifact{}, err
	}
	defer body.Close()

	return a.deps.Store.WriteStream(target, body)
}

// maxRedirects matches the net/http default policy.
const maxRedirects = 10

// HostNotAllowedError reports a download host rejected by the HostMatcher.
type HostNotAllowedError struct {
	Host string
}

func (e *HostNotAllowedError) Error() string {
	return fmt.Sprintf("host %s is not in the download allowlist", e.Host)
}

func (a *DownloadAction) checkHost(u *url.URL) error {
	if !a.deps.Hosts.IsAllowed(u.Hostname()) {
		return &HostNotAllowedError{Host: u.Hostname()}
	}
	return nil
}

// client returns the configured client with every redirect hop checked
// against the host rules.
func (a *DownloadAction) client() *http.Client {
	base := a.deps.HTTPClient
	c := *base
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := a.checkHost(req.URL); err != nil {
			return err
		}
		if base.CheckRedirect != nil {
			return base.CheckRedirect(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &c
}

// decodeBody undoes the content encodings requested in downloadHeaders.
// Setting Accept-Encoding by hand disables the transport's own gzip handling.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid deflate body: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// pdfcpu otherwise installs a config.yml under the user config directory and
// exits the process when it cannot.
var disablePDFConfig sync.Once

// pdfPages returns the page count of a saved PDF. Files that are not valid
// PDFs are kept as downloaded.
func pdfPages(path string) (n int, ok bool) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0, false
	}
	// The parser can panic on malformed files.
	defer func() {
		if recover() != nil {
			n, ok = 0, false
		}
	}()
	disablePDFConfig.Do(api.DisableConfigDir)
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, false
	}
	return pages, true
}
