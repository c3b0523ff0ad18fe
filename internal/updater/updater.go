// Package updater checks GitHub Releases for a newer AdbAutoPlayer version.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/AdbAutoPlayer/shell/internal/buildinfo"
)

const (
	releasesURL = "https://api.github.com/repos/AdbAutoPlayer/AdbAutoPlayer/releases/latest"
)

// ReleaseInfo contains information about a GitHub release.
type ReleaseInfo struct {
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// UpdateResult contains the result of an update check.
type UpdateResult struct {
	Available      bool
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	Release        *ReleaseInfo
}

// Checker queries a releases endpoint.
type Checker struct {
	URL            string
	Client         *http.Client
	CurrentVersion string
}

// NewChecker creates a checker for the AdbAutoPlayer repository and the
// running build.
func NewChecker() *Checker {
	return &Checker{
		URL:            releasesURL,
		Client:         &http.Client{Timeout: 10 * time.Second},
		CurrentVersion: buildinfo.Version,
	}
}

// CheckForUpdate queries GitHub Releases API for a newer version.
func CheckForUpdate(ctx context.Context) (*UpdateResult, error) {
	return NewChecker().Check(ctx)
}

// Check fetches the latest release and compares it with CurrentVersion.
func (c *Checker) Check(ctx context.Context) (*UpdateResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "adbautoplayer/"+c.CurrentVersion)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No releases yet
		return &UpdateResult{
			Available:      false,
			CurrentVersion: c.CurrentVersion,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	latest := canonical(release.TagName)
	if latest == "" {
		return nil, fmt.Errorf("parse latest version %q: not a semantic version", release.TagName)
	}

	// A "dev" or otherwise unparseable build is treated as older than any release.
	current := canonical(c.CurrentVersion)
	return &UpdateResult{
		Available:      current == "" || semver.Compare(current, latest) < 0,
		CurrentVersion: c.CurrentVersion,
		LatestVersion:  strings.TrimPrefix(latest, "v"),
		ReleaseURL:     release.HTMLURL,
		Release:        &release,
	}, nil
}

// canonical returns v as a canonical "vMAJOR.MINOR.PATCH" string, or "" if
// it is not a semantic version.
func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}
