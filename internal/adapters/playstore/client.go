package playstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"app_reviews/internal/adapters/httpclient"
)

const (
	DefaultBase = "https://play.google.com"

	sortNewest = 2
	maxPerPage = 199 // upstream rejects larger pages

	firstPage = `[[["UsvDTd","[null,null,[2,%d,[%d,null,null],null,[]],[\"%s\",7]]",null,"generic"]]]`
	nextPage  = `[[["UsvDTd","[null,null,[2,%d,[%d,null,\"%s\"],null,[]],[\"%s\",7]]",null,"generic"]]]`
)

var ErrUnexpectedPayload = errors.New("playstore: unexpected response payload")

// Client lists Google Play reviews through the store's batchexecute RPC.
type Client struct {
	base string
	hc   *httpclient.Client
}

func New(base string, hc *httpclient.Client) *Client {
	if base == "" {
		base = DefaultBase
	}
	return &Client{base: base, hc: hc}
}

// Reviews returns up to count reviews, newest first, paging with the
// continuation token. A failure after the first page returns what was
// collected.
func (c *Client) Reviews(ctx context.Context, appID, lang, country string, count int) ([]map[string]any, error) {
	var (
		out   []map[string]any
		token string
	)
	for len(out) < count {
		n := min(count-len(out), maxPerPage)
		page, next, err := c.page(ctx, appID, lang, country, n, token)
		if err != nil {
			if len(out) > 0 {
				break
			}
			return nil, err
		}
		out = append(out, page...)
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (c *Client) page(ctx context.Context, appID, lang, country string, n int, token string) ([]map[string]any, string, error) {
	req := fmt.Sprintf(firstPage, sortNewest, n, appID)
	if token != "" {
		req = fmt.Sprintf(nextPage, sortNewest, n, token, appID)
	}
	u := fmt.Sprintf("%s/_/PlayStoreUi/data/batchexecute?hl=%s&gl=%s",
		c.base, url.QueryEscape(lang), url.QueryEscape(country))
	form := []byte("f.req=" + url.QueryEscape(req))

	body, err := c.hc.Post(ctx, u, "application/x-www-form-urlencoded", form, nil)
	if err != nil {
		return nil, "", err
	}
	return decodePage(body)
}

// decodePage unwraps the batchexecute envelope: an anti-XSSI prefix line,
// then an array whose [0][2] element is the RPC result encoded as a string.
func decodePage(body []byte) ([]map[string]any, string, error) {
	if i := bytes.IndexByte(body, '['); i >= 0 {
		body = body[i:]
	} else {
		return nil, "", ErrUnexpectedPayload
	}
	var outer []any
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&outer); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	raw, ok := at(outer, 0, 2).(string)
	if !ok {
		return nil, "", ErrUnexpectedPayload
	}
	var inner []any
	if err := json.Unmarshal([]byte(raw), &inner); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}

	items, _ := at(inner, 0).([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, reviewRecord(it))
	}
	return out, continuation(inner), nil
}

func reviewRecord(it any) map[string]any {
	return map[string]any{
		"reviewId":             str(at(it, 0)),
		"userName":             str(at(it, 1, 0)),
		"userImage":            str(at(it, 1, 1, 3, 2)),
		"content":              str(at(it, 4)),
		"score":                num(at(it, 2)),
		"thumbsUpCount":        num(at(it, 6)),
		"reviewCreatedVersion": str(at(it, 10)),
		"at":                   unix(at(it, 5, 0)),
		"replyContent":         str(at(it, 7, 1)),
		"repliedAt":            unix(at(it, 7, 2, 0)),
		"appVersion":           str(at(it, 10)),
	}
}

// continuation finds the page token: the trailing string of the last
// non-review array in the result.
func continuation(inner []any) string {
	for i := len(inner) - 1; i >= 1; i-- {
		arr, ok := inner[i].([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		if s, ok := arr[len(arr)-1].(string); ok {
			return s
		}
	}
	return ""
}

// at walks nested arrays by index, returning nil on any miss.
func at(v any, path ...int) any {
	cur := v
	for _, i := range path {
		arr, ok := cur.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		cur = arr[i]
	}
	return cur
}

func str(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	return nil
}

func num(v any) any {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return nil
}

func unix(v any) any {
	if f, ok := v.(float64); ok {
		return time.Unix(int64(f), 0).UTC()
	}
	return nil
}
