// Package musicbrainz implements the MusicBrainz metadata provider on top
// of the public web service.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/medleyd/medley/internal/constants"
)

// Client is a rate-limited MusicBrainz web service client. The service
// allows one request per second per client; the limiter enforces that and
// transient failures are retried with backoff.
type Client struct {
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Timeout = constants.MusicBrainzHTTPTimeout

	return &Client{
		http:      rc,
		limiter:   rate.NewLimiter(rate.Every(constants.MusicBrainzRateLimit), 1),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: constants.MusicBrainzUserAgent,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("fmt", "json")
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("musicbrainz returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type mbTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type mbArtist struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score int     `json:"score"`
	Tags  []mbTag `json:"tags"`
}

type artistSearchResponse struct {
	Artists []mbArtist `json:"artists"`
}

type mbReleaseGroup struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Score            int     `json:"score"`
	PrimaryType      string  `json:"primary-type"`
	FirstReleaseDate string  `json:"first-release-date"`
	Tags             []mbTag `json:"tags"`
}

type releaseGroupSearchResponse struct {
	ReleaseGroups []mbReleaseGroup `json:"release-groups"`
}

// SearchArtists queries the artist index by name.
func (c *Client) SearchArtists(ctx context.Context, name string) ([]mbArtist, error) {
	query := url.Values{}
	query.Set("query", fmt.Sprintf("artist:%q", name))
	query.Set("limit", "5")

	var result artistSearchResponse
	if err := c.get(ctx, "/artist", query, &result); err != nil {
		return nil, err
	}
	return result.Artists, nil
}

// GetArtist looks an artist up by MusicBrainz id, including its tags.
func (c *Client) GetArtist(ctx context.Context, mbid string) (*mbArtist, error) {
	query := url.Values{}
	query.Set("inc", "tags")

	var artist mbArtist
	if err := c.get(ctx, "/artist/"+url.PathEscape(mbid), query, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// SearchReleaseGroups queries release groups by album title and artist.
func (c *Client) SearchReleaseGroups(ctx context.Context, album, artist string) ([]mbReleaseGroup, error) {
	q := fmt.Sprintf("releasegroup:%q", album)
	if artist != "" {
		q += fmt.Sprintf(" AND artist:%q", artist)
	}
	query := url.Values{}
	query.Set("query", q)
	query.Set("limit", "5")

	var result releaseGroupSearchResponse
	if err := c.get(ctx, "/release-group", query, &result); err != nil {
		return nil, err
	}
	return result.ReleaseGroups, nil
}

// topTags returns tag names sorted by vote count, highest first.
func topTags(tags []mbTag, max int) []string {
	sorted := make([]mbTag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })

	var out []string
	for _, t := range sorted {
		if t.Name == "" || containsStr(out, t.Name) {
			continue
		}
		out = append(out, t.Name)
		if len(out) == max {
			break
		}
	}
	return out
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
