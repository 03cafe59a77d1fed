package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"app_reviews/internal/adapters/httpclient"
)

const (
	DefaultAppsBase = "https://apps.apple.com"
	DefaultAmpBase  = "https://amp-api.apps.apple.com"

	pageSize = 20
)

var (
	ErrTokenNotFound = errors.New("appstore: bearer token not found on app page")

	tokenPattern  = regexp.MustCompile(`token%22%3A%22(.+?)%22`)
	offsetPattern = regexp.MustCompile(`offset=(\d+)`)
)

// Client is the structured App Store review client: it scrapes the web
// player's bearer token from the app page, then pages the catalog reviews API.
type Client struct {
	appsBase string
	ampBase  string
	hc       *httpclient.Client
}

func New(appsBase, ampBase string, hc *httpclient.Client) *Client {
	if appsBase == "" {
		appsBase = DefaultAppsBase
	}
	if ampBase == "" {
		ampBase = DefaultAmpBase
	}
	return &Client{appsBase: appsBase, ampBase: ampBase, hc: hc}
}

type ampPage struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Date              string `json:"date"`
			Review            string `json:"review"`
			Rating            int    `json:"rating"`
			IsEdited          bool   `json:"isEdited"`
			UserName          string `json:"userName"`
			Title             string `json:"title"`
			DeveloperResponse *struct {
				Body     string `json:"body"`
				Modified string `json:"modified"`
			} `json:"developerResponse"`
		} `json:"attributes"`
	} `json:"data"`
	Next string `json:"next"`
}

func (c *Client) Reviews(ctx context.Context, country, appName string, appID int64, count int) ([]map[string]any, error) {
	appURL := fmt.Sprintf("%s/%s/app/%s/id%d", c.appsBase, country, url.PathEscape(appName), appID)
	token, err := c.token(ctx, appURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{
		"Authorization": {"Bearer " + token},
		"Accept":        {"application/json"},
		"Origin":        {c.appsBase},
		"Referer":       {appURL},
	}

	var out []map[string]any
	offset := 0
	for len(out) < count {
		u := fmt.Sprintf("%s/v1/catalog/%s/apps/%d/reviews?l=en-GB&offset=%d&limit=%d&platform=web&additionalPlatforms=appletv,ipad,iphone,mac",
			c.ampBase, country, appID, offset, pageSize)
		body, err := c.hc.Get(ctx, u, header)
		if err != nil {
			if len(out) > 0 {
				break
			}
			return nil, fmt.Errorf("reviews page at offset %d: %w", offset, err)
		}
		var page ampPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode reviews page: %w", err)
		}
		for _, d := range page.Data {
			rec := map[string]any{
				"id":       d.ID,
				"date":     parseDate(d.Attributes.Date),
				"review":   d.Attributes.Review,
				"rating":   d.Attributes.Rating,
				"isEdited": d.Attributes.IsEdited,
				"userName": d.Attributes.UserName,
				"title":    d.Attributes.Title,
			}
			if dr := d.Attributes.DeveloperResponse; dr != nil {
				rec["developerResponse"] = dr.Body
			}
			out = append(out, rec)
		}

		m := offsetPattern.FindStringSubmatch(page.Next)
		if m == nil || len(page.Data) == 0 {
			break
		}
		next, _ := strconv.Atoi(m[1])
		if next <= offset {
			break
		}
		offset = next
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (c *Client) token(ctx context.Context, appURL string) (string, error) {
	body, err := c.hc.Get(ctx, appURL, http.Header{"Accept": {"text/html"}})
	if err != nil {
		return "", fmt.Errorf("app page: %w", err)
	}
	m := tokenPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrTokenNotFound
	}
	return string(m[1]), nil
}

func parseDate(s string) any {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return s
}
