package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"canvas-sync/internal/httpx"
)

type Client struct {
	BaseURL  string
	PageSize int
	HTTP     *http.Client
}

func New(baseURL string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		BaseURL:  baseURL,
		PageSize: pageSize,
		HTTP: &http.Client{
			Timeout: 10 * time.Second, // per page
		},
	}
}

// ListCourses fetches the caller's full active student enrollment, all pages.
func (c *Client) ListCourses(ctx context.Context, token string) ([]Course, error) {
	params := url.Values{}
	params.Set("enrollment_type", "student")
	params.Set("enrollment_state", "active")

	var out []Course
	if err := c.fetchAll(ctx, c.BaseURL+"/courses", token, params, &out); err != nil {
		return nil, fmt.Errorf("canvas: list courses: %w", err)
	}
	return out, nil
}

// ListAssignments fetches every assignment of one course, all pages.
func (c *Client) ListAssignments(ctx context.Context, token string, canvasCourseID int64) ([]Assignment, error) {
	var out []Assignment
	u := fmt.Sprintf("%s/courses/%d/assignments", c.BaseURL, canvasCourseID)
	if err := c.fetchAll(ctx, u, token, nil, &out); err != nil {
		return nil, fmt.Errorf("canvas: list assignments course=%d: %w", canvasCourseID, err)
	}
	return out, nil
}

// fetchAll GETs pageURL and follows the Link rel="next" chain until exhausted,
// appending each page into dst (a pointer to a slice). Query parameters go on
// the first request only; continuation URLs already embed them. Pagination is
// all-or-nothing: the first failed page aborts with no partial result.
func (c *Client) fetchAll(ctx context.Context, firstURL, token string, params url.Values, dst any) error {
	var next string
	if len(params) > 0 {
		params.Set("per_page", strconv.Itoa(c.PageSize))
		next = firstURL + "?" + params.Encode()
	} else {
		next = firstURL + "?per_page=" + strconv.Itoa(c.PageSize)
	}

	pages := 0
	for next != "" {
		pageURL := next
		resp, body, err := httpx.Do(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", "application/json")
			r.Header.Set("Authorization", "Bearer "+token)
			return r, nil
		})
		if err != nil {
			return fmt.Errorf("page %d url=%s: %w", pages+1, pageURL, err)
		}

		if err := appendPage(dst, body); err != nil {
			return fmt.Errorf("page %d url=%s: %w", pages+1, pageURL, err)
		}

		pages++
		next = httpx.NextLink(resp.Header)
	}
	return nil
}

// appendPage decodes one JSON array page into *[]Course or *[]Assignment,
// preserving source order.
func appendPage(dst any, body []byte) error {
	switch d := dst.(type) {
	case *[]Course:
		var page []Course
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("json parse error: %w", err)
		}
		*d = append(*d, page...)
	case *[]Assignment:
		var page []Assignment
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("json parse error: %w", err)
		}
		*d = append(*d, page...)
	default:
		return fmt.Errorf("unsupported page type %T", dst)
	}
	return nil
}
