// Package fetch downloads remote files and resolves GitHub release assets.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/tui"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 30 * time.Minute

// Options configures a Fetcher.
type Options struct {
	// Token authenticates GitHub API calls when set.
	Token string
	// APIBaseURL overrides the GitHub API endpoint, for GitHub Enterprise.
	APIBaseURL string
}

// Fetcher downloads files over HTTP and queries GitHub releases.
type Fetcher struct {
	http   *http.Client
	github *github.Client
}

// New creates a Fetcher.
func New(ctx context.Context, opts Options) (*Fetcher, error) {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = DefaultTimeout
	}

	client := github.NewClient(httpClient)
	if opts.APIBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.APIBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = base
	}

	return &Fetcher{http: httpClient, github: client}, nil
}

// Download fetches rawURL into dest, replacing it. file:// URLs and plain
// paths are copied. Progress is reported on the console of rc.
func (f *Fetcher) Download(ctx context.Context, rc *runtime.Context, rawURL, dest string) error {
	if rc.DryRun {
		rc.Splog.Info("Download %s to %s", rawURL, dest)
		return nil
	}
	rc.Splog.Info("Fetching %s", rawURL)

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	body, size, err := f.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", part, err)
	}

	progress := tui.NewProgress(rc.Splog, filepath.Base(dest), size)
	_, err = io.Copy(io.MultiWriter(out, progress), body)
	progress.Finish()
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}

	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("failed to move download to %s: %w", dest, err)
	}
	rc.Splog.Debug("Downloaded %d bytes to %s", progress.Written(), dest)
	return nil
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Scheme == "file" || len(u.Scheme) == 1 {
		path := rawURL
		if err == nil && u.Scheme == "file" {
			path = u.Path
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open %s: %w", rawURL, err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, 0, err
		}
		return file, info.Size(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// HTTPError is returned for unexpected response codes.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// ErrNoAsset is returned when no release asset matches the requested pattern.
var ErrNoAsset = errors.New("no matching release asset")

// Asset is a downloadable file attached to a GitHub release.
type Asset struct {
	Name string
	URL  string
	Tag  string
}

// ResolveRelease finds the asset of release tag in repo ("owner/name") whose name
// matches pattern. An empty tag selects the latest release.
func (f *Fetcher) ResolveRelease(ctx context.Context, repo, tag, pattern string) (*Asset, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("release %q is not of the form owner/repo", repo)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid asset pattern %q: %w", pattern, err)
	}

	var release *github.RepositoryRelease
	if tag == "" {
		release, _, err = f.github.Repositories.GetLatestRelease(ctx, owner, name)
	} else {
		release, _, err = f.github.Repositories.GetReleaseByTag(ctx, owner, name, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release %s of %s: %w", releaseName(tag), repo, err)
	}

	for _, a := range release.Assets {
		if re.MatchString(a.GetName()) {
			return &Asset{Name: a.GetName(), URL: a.GetBrowserDownloadURL(), Tag: release.GetTagName()}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s release of %s", ErrNoAsset, pattern, releaseName(tag), repo)
}

func releaseName(tag string) string {
	if tag == "" {
		return "latest"
	}
	return tag
}
