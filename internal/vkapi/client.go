package vkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.vk.com"
	apiVersion     = "5.131"
)

// Client is a minimal VK API client used for batch avatar lookups
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a VK API client authorized with a service token
func NewClient(serviceToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		token:      serviceToken,
	}
}

type usersGetResponse struct {
	Response []struct {
		ID      int64  `json:"id"`
		Photo50 string `json:"photo_50"`
	} `json:"response"`
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_msg"`
	} `json:"error"`
}

// UserAvatars fetches 50px profile photos for the given user ids. Users
// without a photo are absent from the result map.
func (c *Client) UserAvatars(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	params := url.Values{}
	params.Set("user_ids", strings.Join(userIDs, ","))
	params.Set("fields", "photo_50")
	params.Set("access_token", c.token)
	params.Set("v", apiVersion)

	endpoint := c.baseURL + "/method/users.get?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build users.get request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call users.get: %w", err)
	}
	defer resp.Body.Close()

	var body usersGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode users.get response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("users.get error %d: %s", body.Error.Code, body.Error.Message)
	}

	avatars := make(map[string]string, len(body.Response))
	for _, user := range body.Response {
		if user.Photo50 != "" {
			avatars[strconv.FormatInt(user.ID, 10)] = user.Photo50
		}
	}

	return avatars, nil
}
