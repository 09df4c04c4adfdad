package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/transfer"
	"github.com/maheshrc27/threads-poster/pkg/utils"
	"golang.org/x/oauth2"
)

// Publisher publishes one post. image may be nil for a text-only post.
type Publisher interface {
	Publish(ctx context.Context, text string, image *models.ImageRef) (string, error)
}

type ThreadsService interface {
	// ForSession binds a publisher to an authenticated session.
	ForSession(session *models.Session) Publisher
	// UserInfo returns the account behind an access token.
	UserInfo(ctx context.Context, session *models.Session) (*transfer.ThreadsUserInfo, error)
}

type threadsService struct {
	apiURL  string
	media   MediaService
	policy  utils.RetryPolicy
	timeout time.Duration
	base    *http.Client
}

func NewThreadsService(apiURL string, media MediaService, policy utils.RetryPolicy, timeout time.Duration) ThreadsService {
	return &threadsService{
		apiURL:  strings.TrimRight(apiURL, "/"),
		media:   media,
		policy:  policy,
		timeout: timeout,
		base:    &http.Client{Timeout: timeout},
	}
}

// client returns an HTTP client that sends the session's bearer token.
func (s *threadsService) client(ctx context.Context, session *models.Session) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
	}))
	c.Timeout = s.timeout
	return c
}

func (s *threadsService) UserInfo(ctx context.Context, session *models.Session) (*transfer.ThreadsUserInfo, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,username", s.apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	var userInfo transfer.ThreadsUserInfo
	if err := s.do(s.client(ctx, session), req, &userInfo); err != nil {
		return nil, err
	}
	if userInfo.UserID == "" {
		return nil, errors.New("no user id returned from Threads")
	}
	return &userInfo, nil
}

func (s *threadsService) ForSession(session *models.Session) Publisher {
	return &threadsPublisher{s: s, session: session}
}

type threadsPublisher struct {
	s       *threadsService
	session *models.Session
}

func (p *threadsPublisher) Publish(ctx context.Context, text string, image *models.ImageRef) (string, error) {
	if !p.session.Valid(time.Now()) {
		return "", fmt.Errorf("%w: %w", models.ErrPublish, models.ErrAuth)
	}

	var imageURL string
	var postID string
	err := utils.Retry(ctx, p.s.policy, "publish", func(ctx context.Context, attempt int) error {
		if image != nil && imageURL == "" {
			resolved, err := p.s.media.ResolveImageURL(ctx, image)
			if err != nil {
				return err
			}
			imageURL = resolved
		}

		id, err := p.publishOnce(ctx, text, imageURL)
		if err != nil {
			return err
		}
		postID = id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrPublish, err)
	}

	if imageURL != "" {
		slog.Info("posted with image", "media_id", postID)
	} else {
		slog.Info("posted text", "media_id", postID)
	}
	return postID, nil
}

func (p *threadsPublisher) publishOnce(ctx context.Context, text, imageURL string) (string, error) {
	client := p.s.client(ctx, p.session)

	form := url.Values{}
	form.Set("text", text)
	if imageURL != "" {
		form.Set("media_type", "IMAGE")
		form.Set("image_url", imageURL)
	} else {
		form.Set("media_type", "TEXT")
	}

	var container transfer.ThreadsContainer
	if err := p.s.postForm(ctx, client, fmt.Sprintf("%s/%s/threads", p.s.apiURL, p.session.UserID), form, &container); err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	if container.ID == "" {
		return "", errors.New("no container ID returned from Threads")
	}

	publish := url.Values{}
	publish.Set("creation_id", container.ID)

	var published transfer.ThreadsContainer
	if err := p.s.postForm(ctx, client, fmt.Sprintf("%s/%s/threads_publish", p.s.apiURL, p.session.UserID), publish, &published); err != nil {
		return "", fmt.Errorf("failed to publish container %s: %w", container.ID, err)
	}
	if published.ID == "" {
		return "", errors.New("no media ID returned from Threads")
	}
	return published.ID, nil
}

func (s *threadsService) postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(client, req, out)
}

func (s *threadsService) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// apiError classifies a non-200 response. Client errors other than rate
// limiting are not retried unless the API flags them as transient.
func apiError(status int, body []byte) error {
	var apiErr transfer.ThreadsErrorResponse
	msg := strings.TrimSpace(string(body))
	transient := false
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
		transient = apiErr.Error.IsTransient
	}

	err := fmt.Errorf("unexpected status code from Threads: %d: %s", status, msg)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && !transient {
		return utils.Permanent(err)
	}
	return err
}
