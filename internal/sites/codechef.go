package sites

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/cpbot/internal/domain"
)

// CodeChefBaseURL is the default CodeChef site root.
const CodeChefBaseURL = "https://www.codechef.com"

// CodeChef scrapes the CodeChef contest listing and user pages. Its Fetcher
// must not follow redirects: team handles redirect away from /users/.
type CodeChef struct {
	baseURL string
	fetch   *Fetcher
}

// NewCodeChef creates a CodeChef site. An empty baseURL uses CodeChefBaseURL.
func NewCodeChef(baseURL string, fetch *Fetcher) *CodeChef {
	if baseURL == "" {
		baseURL = CodeChefBaseURL
	}
	return &CodeChef{baseURL: strings.TrimRight(baseURL, "/"), fetch: fetch}
}

func (c *CodeChef) Tag() string          { return TagCodeChef }
func (c *CodeChef) Name() string         { return "CodeChef" }
func (c *CodeChef) BreakerState() string { return c.fetch.State().String() }

// FetchFutureContests parses the "Future Contests" table.
func (c *CodeChef) FetchFutureContests(ctx context.Context) ([]domain.Contest, error) {
	body, err := c.fetch.Get(ctx, kindContests, c.baseURL+"/contests")
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("codechef: parsing contests: %w", err)
	}

	title := findText(doc, "Future Contests")
	if title == nil || title.Parent == nil {
		return []domain.Contest{}, nil
	}
	table := nextElement(title.Parent)
	if table == nil {
		return nil, fmt.Errorf("codechef: future contests table not found")
	}
	tbody := find(table, byTag("tbody"))
	if tbody == nil {
		return []domain.Contest{}, nil
	}

	var contests []domain.Contest
	for _, row := range findAll(tbody, byTag("tr")) {
		cells := findAll(row, byTag("td"))
		if len(cells) < 4 {
			return nil, fmt.Errorf("codechef: contest row has %d cells", len(cells))
		}

		start, err := time.Parse(time.RFC3339, attr(cells[2], "data-starttime"))
		if err != nil {
			return nil, fmt.Errorf("codechef: parsing start time: %w", err)
		}
		end, err := time.Parse(time.RFC3339, attr(cells[3], "data-endtime"))
		if err != nil {
			return nil, fmt.Errorf("codechef: parsing end time: %w", err)
		}

		contests = append(contests, domain.Contest{
			Name:     textContent(cells[1]),
			SiteTag:  c.Tag(),
			SiteName: c.Name(),
			URL:      c.baseURL + "/" + textContent(cells[0]),
			Start:    start,
			Length:   end.Sub(start),
		})
	}
	domain.SortContests(contests)
	return contests, nil
}

// FetchProfile reads name, avatar and rating from the user page. A rating of
// zero is reported as unrated.
func (c *CodeChef) FetchProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	profileURL := c.baseURL + "/users/" + url.PathEscape(handle)
	body, err := c.fetch.Get(ctx, kindProfile, profileURL)
	if err != nil {
		code := statusCode(err)
		if code == http.StatusNotFound || (code >= 300 && code <= 399) {
			return nil, nil
		}
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("codechef: parsing profile: %w", err)
	}

	details := find(doc, byClass("div", "user-details-container"))
	if details == nil {
		return nil, fmt.Errorf("codechef: user details not found")
	}
	header := find(details, byTag("header"))
	if header == nil {
		return nil, fmt.Errorf("codechef: user header not found")
	}

	profile := &domain.Profile{
		Handle:   handle,
		SiteTag:  c.Tag(),
		SiteName: c.Name(),
		URL:      profileURL,
	}
	if h2 := find(header, byTag("h2")); h2 != nil {
		profile.Name = textContent(h2)
	}
	if img := find(header, byTag("img")); img != nil {
		profile.Avatar = c.baseURL + attr(img, "src")
	}

	ratingTag := find(doc, byClass("div", "rating-number"))
	if ratingTag == nil {
		return nil, fmt.Errorf("codechef: rating not found")
	}
	rating, err := strconv.Atoi(textContent(ratingTag))
	if err != nil {
		return nil, fmt.Errorf("codechef: parsing rating: %w", err)
	}
	if rating != 0 {
		profile.Rating = domain.Rating(rating)
	}
	return profile, nil
}
