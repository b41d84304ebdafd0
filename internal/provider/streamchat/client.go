// Package streamchat implements provider.Provider against the Stream Chat
// server-side REST API.
package streamchat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"devpair-be/internal/logger"
	"devpair-be/internal/provider"
)

const channelType = "messaging"

type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	http   *resty.Client
	secret []byte
}

var _ provider.Provider = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("streamchat: api key and secret are required")
	}

	serverToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true}).
		SignedString([]byte(cfg.APISecret))
	if err != nil {
		return nil, fmt.Errorf("streamchat: sign server token: %w", err)
	}

	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetQueryParam("api_key", cfg.APIKey).
		SetHeader("Authorization", serverToken).
		SetHeader("Stream-Auth-Type", "jwt").
		SetHeader("Content-Type", "application/json")

	return &Client{http: hc, secret: []byte(cfg.APISecret)}, nil
}

type apiError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"StatusCode"`
}

type channelData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy *struct {
		ID string `json:"id"`
	} `json:"created_by,omitempty"`
}

type memberData struct {
	UserID string `json:"user_id"`
}

type channelState struct {
	Channel channelData  `json:"channel"`
	Members []memberData `json:"members"`
}

func (c *Client) CreateChannel(ctx context.Context, spec provider.ChannelSpec) (*provider.ChannelHandle, error) {
	body := map[string]any{
		"state": true,
		"data": map[string]any{
			"name":          spec.Name,
			"members":       provider.UserKeys(spec.Members),
			"created_by_id": provider.UserKey(spec.CreatedBy),
		},
	}

	var out channelState
	if err := c.post(ctx, channelPath(spec.ID)+"/query", body, &out); err != nil {
		return nil, fmt.Errorf("create channel %s: %w", spec.ID, err)
	}
	return toHandle(out)
}

func (c *Client) AddMembers(ctx context.Context, channelID string, members []uint) error {
	add := make([]memberData, 0, len(members))
	for _, k := range provider.UserKeys(members) {
		add = append(add, memberData{UserID: k})
	}
	if err := c.post(ctx, channelPath(channelID), map[string]any{"add_members": add}, nil); err != nil {
		return fmt.Errorf("add members to %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) RemoveMembers(ctx context.Context, channelID string, members []uint) error {
	body := map[string]any{"remove_members": provider.UserKeys(members)}
	if err := c.post(ctx, channelPath(channelID), body, nil); err != nil {
		return fmt.Errorf("remove members from %s: %w", channelID, err)
	}
	return nil
}

// GetChannel goes through the channel search endpoint because querying a
// single channel id creates it when missing.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*provider.ChannelHandle, error) {
	body := map[string]any{
		"filter_conditions": map[string]any{"cid": channelType + ":" + channelID},
		"state":             true,
		"limit":             1,
	}

	var out struct {
		Channels []channelState `json:"channels"`
	}
	if err := c.post(ctx, "/channels", body, &out); err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channelID, err)
	}
	if len(out.Channels) == 0 {
		return nil, provider.ErrChannelNotFound
	}
	return toHandle(out.Channels[0])
}

func (c *Client) UpsertUser(ctx context.Context, u provider.User) error {
	key := provider.UserKey(u.ID)
	body := map[string]any{
		"users": map[string]any{
			key: map[string]any{"id": key, "name": u.Name, "image": u.Image},
		},
	}
	if err := c.post(ctx, "/users", body, nil); err != nil {
		return fmt.Errorf("upsert user %s: %w", key, err)
	}
	return nil
}

// IssueAccessToken signs a client token locally; Stream verifies it with the
// shared API secret.
func (c *Client) IssueAccessToken(_ context.Context, userID uint) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": provider.UserKey(userID),
		"iat":     time.Now().Unix(),
	}).SignedString(c.secret)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var apiErr apiError
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		logger.Log.Debug("stream api error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		if resp.StatusCode() == http.StatusNotFound {
			return provider.ErrChannelNotFound
		}
		return fmt.Errorf("stream api: status %d code %d: %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	return nil
}

func channelPath(id string) string {
	return "/channels/" + channelType + "/" + url.PathEscape(id)
}

func toHandle(st channelState) (*provider.ChannelHandle, error) {
	h := &provider.ChannelHandle{ID: st.Channel.ID, Name: st.Channel.Name}
	if st.Channel.CreatedBy != nil {
		if id, err := provider.ParseUserKey(st.Channel.CreatedBy.ID); err == nil {
			h.CreatedBy = id
		}
	}
	for _, m := range st.Members {
		id, err := provider.ParseUserKey(m.UserID)
		if err != nil {
			return nil, fmt.Errorf("unexpected member id %q: %w", m.UserID, err)
		}
		h.Members = append(h.Members, id)
	}
	return h, nil
}
