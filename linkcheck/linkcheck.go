// Package linkcheck finds download links that answer 404.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gfz-dataservices/grobi/store"
)

const userAgent = "GROBI Dead Link Checker"

// Link is one download URL of a DOI.
type Link struct {
	DOI string
	URL string
}

// Result summarizes a check run. Dead keeps input order.
type Result struct {
	Dead    []Link
	Checked int
	Skipped int
	Errors  int
}

// Options controls a run.
type Options struct {
	// Concurrency bounds the number of requests in flight (default 8)
	Concurrency int

	// Timeout applies per request (default 10s)
	Timeout time.Duration

	Client *http.Client

	// OnProgress is called after each link with the number done so far
	OnProgress func(done, total int, link Link)
}

// Unique drops repeated (DOI, URL) pairs, keeping first occurrences in
// order. A DOI with several files usually repeats.
func Unique(files []store.File) []Link {
	seen := make(map[Link]struct{}, len(files))
	var out []Link
	for _, f := range files {
		l := Link{DOI: f.DOI, URL: f.URL}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

type verdict int

const (
	verdictSkipped verdict = iota
	verdictAlive
	verdictDead
	verdictError
)

// Check requests every link. Links without an http(s) URL are skipped and
// request failures are counted, neither stops the run. Cancelling ctx does.
func Check(ctx context.Context, links []Link, opts Options) (*Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	verdicts := make([]verdict, len(links))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, l := range links {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = checkOne(gctx, client, opts.Timeout, l)
			n := done.Add(1)
			if opts.OnProgress != nil {
				opts.OnProgress(int(n), len(links), l)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("checking links: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("checking links: %w", err)
	}

	res := &Result{}
	for i, v := range verdicts {
		switch v {
		case verdictSkipped:
			res.Skipped++
		case verdictAlive:
			res.Checked++
		case verdictDead:
			res.Checked++
			res.Dead = append(res.Dead, Link{DOI: links[i].DOI, URL: strings.TrimSpace(links[i].URL)})
		case verdictError:
			res.Errors++
		}
	}
	slog.Info("link check complete",
		"checked", res.Checked, "dead", len(res.Dead), "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

func checkOne(ctx context.Context, client *http.Client, timeout time.Duration, l Link) verdict {
	u := strings.TrimSpace(l.URL)
	lower := strings.ToLower(u)
	if u == "" || !(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
		return verdictSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := request(ctx, client, http.MethodHead, u)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = request(ctx, client, http.MethodGet, u)
	}
	if err != nil {
		slog.Warn("link check failed", "doi", l.DOI, "url", u, "err", err)
		return verdictError
	}
	if status == http.StatusNotFound {
		return verdictDead
	}
	return verdictAlive
}

func request(ctx context.Context, client *http.Client, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	// only the status matters; do not download the file
	_, _ = io.CopyN(io.Discard, resp.Body, 512)
	if err := resp.Body.Close(); err != nil {
		slog.Debug("closing response body", "url", u, "err", err)
	}
	return resp.StatusCode, nil
}
