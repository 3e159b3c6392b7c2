package sites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/cpbot/internal/domain"
)

// CodeforcesBaseURL is the default Codeforces site root.
const CodeforcesBaseURL = "https://codeforces.com"

// Codeforces uses the public JSON API.
type Codeforces struct {
	baseURL string
	fetch   *Fetcher
}

// NewCodeforces creates a Codeforces site. An empty baseURL uses CodeforcesBaseURL.
func NewCodeforces(baseURL string, fetch *Fetcher) *Codeforces {
	if baseURL == "" {
		baseURL = CodeforcesBaseURL
	}
	return &Codeforces{baseURL: strings.TrimRight(baseURL, "/"), fetch: fetch}
}

func (c *Codeforces) Tag() string          { return TagCodeforces }
func (c *Codeforces) Name() string         { return "Codeforces" }
func (c *Codeforces) BreakerState() string { return c.fetch.State().String() }

type cfResponse[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  T      `json:"result"`
}

type cfContest struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds *int64 `json:"startTimeSeconds"`
}

type cfUser struct {
	Handle     string `json:"handle"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Rating     *int   `json:"rating"`
	TitlePhoto string `json:"titlePhoto"`
}

// FetchFutureContests returns contests in phase BEFORE that have a start time.
func (c *Codeforces) FetchFutureContests(ctx context.Context) ([]domain.Contest, error) {
	body, err := c.fetch.Get(ctx, kindContests, c.baseURL+"/api/contest.list")
	if err != nil {
		return nil, err
	}
	var resp cfResponse[[]cfContest]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codeforces: decoding contests: %w", err)
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("codeforces: contest.list: %s", resp.Comment)
	}

	contests := []domain.Contest{}
	for _, cc := range resp.Result {
		if cc.Phase != "BEFORE" || cc.StartTimeSeconds == nil {
			continue
		}
		contests = append(contests, domain.Contest{
			Name:     cc.Name,
			SiteTag:  c.Tag(),
			SiteName: c.Name(),
			URL:      c.baseURL + "/contests/" + strconv.Itoa(cc.ID),
			Start:    time.Unix(*cc.StartTimeSeconds, 0).UTC(),
			Length:   time.Duration(cc.DurationSeconds) * time.Second,
		})
	}
	domain.SortContests(contests)
	return contests, nil
}

// FetchProfile looks the handle up with user.info.
func (c *Codeforces) FetchProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	endpoint := c.baseURL + "/api/user.info?" + url.Values{"handles": {handle}}.Encode()
	body, err := c.fetch.Get(ctx, kindProfile, endpoint)
	if err != nil {
		// API failures come back as 400 with a JSON payload.
		var se *StatusError
		if !errors.As(err, &se) || len(se.Body) == 0 {
			return nil, err
		}
		body = se.Body
	}

	var resp cfResponse[[]cfUser]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codeforces: decoding user: %w", err)
	}
	if resp.Status == "FAILED" && strings.Contains(resp.Comment, "not found") {
		return nil, nil
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("codeforces: user.info: %s", resp.Comment)
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}

	u := resp.Result[0]
	avatar := u.TitlePhoto
	if strings.HasPrefix(avatar, "//") {
		avatar = "https:" + avatar
	}
	return &domain.Profile{
		Handle:   handle,
		SiteTag:  c.Tag(),
		SiteName: c.Name(),
		URL:      c.baseURL + "/profile/" + url.PathEscape(handle),
		Avatar:   avatar,
		Name:     strings.TrimSpace(u.FirstName + " " + u.LastName),
		Rating:   u.Rating,
	}, nil
}
