// Package courseservice calls the enrollment-state collaborator that knows
// which of a user's Canvas courses are currently marked sync-enabled.
package courseservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"canvas-sync/internal/httpx"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

type enrollment struct {
	CanvasCourseID int64  `json:"canvasCourseId"`
	CourseID       int64  `json:"courseId"`
	CourseName     string `json:"courseName"`
}

// EnabledCanvasCourseIDs returns the set of Canvas course ids the user has
// enabled for sync. An empty set is a valid outcome and short-circuits the
// run upstream; it is not an error.
func (c *Client) EnabledCanvasCourseIDs(ctx context.Context, cognitoSub string) (map[int64]bool, error) {
	var out []enrollment
	_, err := httpx.DoJSON(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/internal/v1/enrollments/enabled", nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		r.Header.Set("X-Cognito-Sub", cognitoSub)
		return r, nil
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("courseservice: enabled enrollments: %w", err)
	}

	enabled := make(map[int64]bool, len(out))
	for _, e := range out {
		enabled[e.CanvasCourseID] = true
	}
	return enabled, nil
}
