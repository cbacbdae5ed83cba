// Package social verifies that social accounts exist. GitHub and Reddit are
// looked up directly; other platforms get a manual-check URL for a human.
package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
)

// Platform identifiers as stored on model.SocialAccount.
const (
	GitHub    = "github"
	Reddit    = "reddit"
	Twitter   = "twitter"
	Instagram = "instagram"
	LinkedIn  = "linkedin"
	Facebook  = "facebook"
	TikTok    = "tiktok"
	YouTube   = "youtube"
)

var manualCheckURLs = map[string]string{
	Twitter:   "https://x.com/%s",
	Instagram: "https://www.instagram.com/%s/",
	LinkedIn:  "https://www.linkedin.com/in/%s/",
	Facebook:  "https://www.facebook.com/%s",
	TikTok:    "https://www.tiktok.com/@%s",
	YouTube:   "https://www.youtube.com/@%s",
	GitHub:    "https://github.com/%s",
	Reddit:    "https://www.reddit.com/user/%s",
}

// Verification is the normalized result of one account lookup.
type Verification struct {
	Exists     bool   `json:"exists"`
	Visibility string `json:"visibility,omitempty"`
	Followers  *int   `json:"followers,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	model.Failure
}

// Client verifies social accounts.
type Client interface {
	// Automatable reports whether Verify can check the platform directly.
	Automatable(platform string) bool
	Verify(ctx context.Context, platform, handle string) Verification
}

// NormalizePlatform lower-cases a platform name and folds aliases.
func NormalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "x" {
		return Twitter
	}
	return p
}

// ManualCheckURL returns the profile URL a human should open, or "" for an
// unknown platform.
func ManualCheckURL(platform, handle string) string {
	tmpl, ok := manualCheckURLs[NormalizePlatform(platform)]
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if !ok || handle == "" {
		return ""
	}
	return fmt.Sprintf(tmpl, url.PathEscape(handle))
}

// HandleFromURL extracts the account handle from a profile URL.
func HandleFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for len(segs) > 0 {
		s := segs[0]
		switch strings.ToLower(s) {
		case "in", "user", "u":
			segs = segs[1:]
			continue
		}
		return strings.TrimPrefix(s, "@")
	}
	return ""
}

// Option configures the client.
type Option func(*restyClient)

// WithBaseURLs overrides the GitHub and Reddit API hosts.
func WithBaseURLs(github, reddit string) Option {
	return func(c *restyClient) {
		if github != "" {
			c.githubURL = strings.TrimRight(github, "/")
		}
		if reddit != "" {
			c.redditURL = strings.TrimRight(reddit, "/")
		}
	}
}

// WithGitHubToken authenticates GitHub lookups for a higher rate limit.
func WithGitHubToken(token string) Option {
	return func(c *restyClient) { c.githubToken = token }
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *restyClient) { c.http.SetTimeout(d) }
}

type restyClient struct {
	http        *resty.Client
	githubURL   string
	redditURL   string
	githubToken string
}

// NewClient creates a social verifier.
func NewClient(opts ...Option) Client {
	c := &restyClient{
		http: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("User-Agent", "profile-cli/1.0").
			SetHeader("Accept", "application/json"),
		githubURL: "https://api.github.com",
		redditURL: "https://www.reddit.com",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *restyClient) Automatable(platform string) bool {
	switch NormalizePlatform(platform) {
	case GitHub, Reddit:
		return true
	default:
		return false
	}
}

func (c *restyClient) Verify(ctx context.Context, platform, handle string) Verification {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return Verification{Failure: model.Fail(model.ErrProvider, "empty handle")}
	}

	switch NormalizePlatform(platform) {
	case GitHub:
		return c.verifyGitHub(ctx, handle)
	case Reddit:
		return c.verifyReddit(ctx, handle)
	default:
		return Verification{Failure: model.Fail(model.ErrProvider,
			fmt.Sprintf("platform %q requires manual check", platform))}
	}
}

type githubUser struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	Followers int    `json:"followers"`
}

func (c *restyClient) verifyGitHub(ctx context.Context, handle string) Verification {
	var user githubUser
	req := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		ForceContentType("application/json")
	if c.githubToken != "" {
		req.SetAuthToken(c.githubToken)
	}

	resp, err := req.Get(c.githubURL + "/users/" + url.PathEscape(handle))
	if v, done := classify("github", handle, resp, err); done {
		return v
	}

	followers := user.Followers
	return Verification{
		Exists:     true,
		Visibility: "public",
		Followers:  &followers,
		ProfileURL: user.HTMLURL,
	}
}

type redditAbout struct {
	Data struct {
		Name         string `json:"name"`
		IsSuspended  bool   `json:"is_suspended"`
		HideFromBots bool   `json:"hide_from_robots"`
		Subreddit    struct {
			Subscribers int `json:"subscribers"`
		} `json:"subreddit"`
	} `json:"data"`
}

func (c *restyClient) verifyReddit(ctx context.Context, handle string) Verification {
	var about redditAbout
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&about).
		ForceContentType("application/json").
		Get(c.redditURL + "/user/" + url.PathEscape(handle) + "/about.json")
	if v, done := classify("reddit", handle, resp, err); done {
		return v
	}

	if about.Data.Name == "" || about.Data.IsSuspended {
		return Verification{}
	}

	visibility := "public"
	if about.Data.HideFromBots {
		visibility = "private"
	}
	followers := about.Data.Subreddit.Subscribers
	return Verification{
		Exists:     true,
		Visibility: visibility,
		Followers:  &followers,
		ProfileURL: ManualCheckURL(Reddit, about.Data.Name),
	}
}

// classify turns transport errors and non-200 replies into a final
// Verification. done=false means the body is ready to read.
func classify(provider, handle string, resp *resty.Response, err error) (Verification, bool) {
	if err != nil {
		zap.L().Debug("social: lookup failed",
			zap.String("provider", provider),
			zap.String("handle", handle),
			zap.Error(err),
		)
		return Verification{Failure: model.Fail(model.ErrNetwork, fmt.Sprintf("%s: %v", provider, err))}, true
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return Verification{}, false
	case http.StatusNotFound:
		return Verification{}, true
	case http.StatusForbidden:
		// GitHub answers an exhausted quota with 403, not 429.
		if resp.Header().Get("X-RateLimit-Remaining") == "0" {
			return Verification{Failure: model.Fail(model.ErrRateLimited,
				fmt.Sprintf("%s rate limit exhausted", provider))}, true
		}
		fallthrough
	default:
		return Verification{Failure: model.Fail(model.CodeForStatus(resp.StatusCode()),
			fmt.Sprintf("%s returned status %d", provider, resp.StatusCode()))}, true
	}
}
