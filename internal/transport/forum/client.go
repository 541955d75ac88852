// Package forum is a minimal REST client for the Discourse-style forum the
// bot delivers offers, codes and notices through.
package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Post is one message inside a topic thread.
type Post struct {
	ID       int    `json:"id"`
	TopicID  int    `json:"topic_id"`
	Username string `json:"username"`
	Content  string `json:"cooked"`
}

// Topic is one thread in a category or private inbox.
type Topic struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Client talks to the forum API with key-based authentication.
type Client struct {
	baseURL     string
	apiKey      string
	apiUsername string
	httpClient  *http.Client
}

// New builds a forum client. A nil httpClient gets a default with a timeout.
func New(baseURL, apiKey, apiUsername string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("forum base url is required")
	}
	if strings.TrimSpace(apiUsername) == "" {
		return nil, fmt.Errorf("forum api username is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		apiUsername: apiUsername,
		httpClient:  httpClient,
	}, nil
}

// Username returns the bot's own forum username, used to exclude the bot's
// posts when scanning threads.
func (c *Client) Username() string {
	return c.apiUsername
}

// CreateReply posts a reply on an existing topic.
func (c *Client) CreateReply(ctx context.Context, topicID int, content string) (Post, error) {
	return c.createPost(ctx, map[string]any{
		"topic_id": topicID,
		"raw":      content,
	})
}

// CreateTopic starts a new topic in a category.
func (c *Client) CreateTopic(ctx context.Context, category, title, content string) (Post, error) {
	return c.createPost(ctx, map[string]any{
		"category": category,
		"title":    title,
		"raw":      content,
	})
}

// CreatePrivateMessage starts a private thread with the given recipients.
func (c *Client) CreatePrivateMessage(ctx context.Context, title, content string, recipients ...string) (Post, error) {
	return c.createPost(ctx, map[string]any{
		"title":             title,
		"raw":               content,
		"archetype":         "private_message",
		"target_recipients": strings.Join(recipients, ","),
	})
}

// UpdatePost replaces the raw content of an existing post.
func (c *Client) UpdatePost(ctx context.Context, postID int, content string) error {
	payload := map[string]any{"post": map[string]any{"raw": content}}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/posts/%d.json", postID), payload, nil)
}

// TopicPosts lists the posts of a topic in thread order.
func (c *Client) TopicPosts(ctx context.Context, topicID int) ([]Post, error) {
	var response struct {
		PostStream struct {
			Posts []Post `json:"posts"`
		} `json:"post_stream"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/t/%d.json", topicID), nil, &response); err != nil {
		return nil, err
	}
	return response.PostStream.Posts, nil
}

// CategoryTopics lists the topics of a category.
func (c *Client) CategoryTopics(ctx context.Context, category string) ([]Topic, error) {
	var response struct {
		TopicList struct {
			Topics []Topic `json:"topics"`
		} `json:"topic_list"`
	}
	path := fmt.Sprintf("/c/%s.json", url.PathEscape(category))
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.TopicList.Topics, nil
}

func (c *Client) createPost(ctx context.Context, payload map[string]any) (Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, "/posts.json", payload, &post); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, target any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Api-Key", c.apiKey)
	request.Header.Set("Api-Username", c.apiUsername)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, response.StatusCode)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
