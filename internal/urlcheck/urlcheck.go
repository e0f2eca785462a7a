// Package urlcheck reports whether the URLs of a package descriptor are
// reachable.
package urlcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/open-edge-platform/lume-model/internal/utils/general/slice"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/utils/network"
)

var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

var supportedSchemes = []string{"http", "https"}

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

type Options struct {
	Workers int
	// Client defaults to network.NewSecureHTTPClient(Timeout).
	Client   *http.Client
	Timeout  time.Duration
	Progress io.Writer
}

// Result is the outcome of checking one URL.
type Result struct {
	Key        string
	URL        string
	Method     string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// OK reports whether the URL answered with a non-error status.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode > 0 && r.StatusCode < http.StatusBadRequest
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s %s: %v", r.Key, r.URL, r.Err)
	default:
		return fmt.Sprintf("%s %s: %s %d", r.Key, r.URL, r.Method, r.StatusCode)
	}
}

// Check requests every URL with HEAD, falling back to GET when HEAD fails or
// is refused. Results are ordered by key. Individual failures are reported
// in the results, never as an error.
func Check(ctx context.Context, urls map[string]string, opts Options) []Result {
	log := logger.Logger()

	keys := make([]string, 0, len(urls))
	for k := range urls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return nil
	}

	client := opts.Client
	if client == nil {
		client = network.NewSecureHTTPClient(opts.Timeout)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	bar := progressbar.NewOptions(len(keys),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("checking urls"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	results := make([]Result, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range keys {
		g.Go(func() error {
			r := checkOne(gctx, client, key, urls[key])
			results[i] = r
			if r.OK() {
				log.Debugf("%s", r)
			} else {
				log.Warnf("url check failed: %s", r)
			}
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()
	return results
}

func checkOne(ctx context.Context, client *http.Client, key, raw string) (res Result) {
	res = Result{Key: key, URL: raw}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	u, err := url.Parse(raw)
	if err != nil {
		res.Err = fmt.Errorf("failed to parse url: %w", err)
		return res
	}
	if !slice.Contains(supportedSchemes, u.Scheme) {
		res.Err = fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		return res
	}

	status, err := request(ctx, client, http.MethodHead, raw)
	res.Method = http.MethodHead
	if err != nil || status >= http.StatusBadRequest {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		status, err = request(ctx, client, http.MethodGet, raw)
		res.Method = http.MethodGet
	}
	res.StatusCode = status
	res.Err = err
	return res
}

func request(ctx context.Context, client *http.Client, method, raw string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, raw, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
