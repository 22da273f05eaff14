package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/model"
	"github.com/dkarpov/annotext/internal/util"
)

// Loader turns a document source into a Document. A source is "-" for
// stdin, a local file path, or an http(s) URL; fetched HTML is reduced to
// visible text before annotation offsets are assigned.
type Loader struct {
	cfg    model.HTTPConfig
	client *http.Client
	robots *util.RobotsChecker
	logf   func(format string, args ...any)
}

// NewLoader creates a loader with the given fetch policy.
func NewLoader(cfg model.HTTPConfig, logf func(string, ...any)) *Loader {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Loader{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots: util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout),
		logf:   logf,
	}
}

// Load reads the document text and creates the document with its store.
func (l *Loader) Load(ctx context.Context, source, language string) (*annotation.Document, error) {
	text, err := l.text(ctx, source)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("source %q: document is empty", source)
	}
	return annotation.NewDocument(text, language), nil
}

func (l *Loader) text(ctx context.Context, source string) (string, error) {
	switch {
	case source == "-":
		data, err := io.ReadAll(io.LimitReader(os.Stdin, l.cfg.MaxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.fetch(ctx, source)

	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(data), nil
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (string, error) {
	allowed, err := l.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return "", fmt.Errorf("fetch %s: disallowed by robots.txt", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain,text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		l.logf("extracting visible text from HTML (%d bytes)", len(body))
		return visibleText(string(body))
	}
	return string(body), nil
}

// visibleText reduces an HTML page to its text nodes, skipping
// script/style/noscript/iframe subtrees.
func visibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}
