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

// AtCoderBaseURL is the default AtCoder site root.
const AtCoderBaseURL = "https://beta.atcoder.jp"

const atcoderTimeLayout = "2006-01-02 15:04:05-0700"

// AtCoder scrapes the AtCoder contest listing and user pages.
type AtCoder struct {
	baseURL string
	fetch   *Fetcher
}

// NewAtCoder creates an AtCoder site. An empty baseURL uses AtCoderBaseURL.
func NewAtCoder(baseURL string, fetch *Fetcher) *AtCoder {
	if baseURL == "" {
		baseURL = AtCoderBaseURL
	}
	return &AtCoder{baseURL: strings.TrimRight(baseURL, "/"), fetch: fetch}
}

func (a *AtCoder) Tag() string          { return TagAtCoder }
func (a *AtCoder) Name() string         { return "AtCoder" }
func (a *AtCoder) BreakerState() string { return a.fetch.State().String() }

// FetchFutureContests parses the "Upcoming Contests" table.
func (a *AtCoder) FetchFutureContests(ctx context.Context) ([]domain.Contest, error) {
	body, err := a.fetch.Get(ctx, kindContests, a.baseURL+"/contests")
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("atcoder: parsing contests: %w", err)
	}

	title := findText(doc, "Upcoming Contests")
	if title == nil || title.Parent == nil {
		return []domain.Contest{}, nil
	}
	table := nextElement(title.Parent)
	if table == nil {
		return nil, fmt.Errorf("atcoder: upcoming contests table not found")
	}
	tbody := find(table, byTag("tbody"))
	if tbody == nil {
		return []domain.Contest{}, nil
	}

	var contests []domain.Contest
	for _, row := range findAll(tbody, byTag("tr")) {
		cells := findAll(row, byTag("td"))
		if len(cells) < 3 {
			return nil, fmt.Errorf("atcoder: contest row has %d cells", len(cells))
		}

		timeTag := find(cells[0], byTag("time"))
		if timeTag == nil {
			return nil, fmt.Errorf("atcoder: contest row without start time")
		}
		start, err := time.Parse(atcoderTimeLayout, textContent(timeTag))
		if err != nil {
			return nil, fmt.Errorf("atcoder: parsing start time: %w", err)
		}

		link := find(cells[1], byTag("a"))
		if link == nil {
			return nil, fmt.Errorf("atcoder: contest row without link")
		}

		length, err := parseHoursMinutes(textContent(cells[2]))
		if err != nil {
			return nil, fmt.Errorf("atcoder: parsing duration: %w", err)
		}

		contests = append(contests, domain.Contest{
			Name:     textContent(link),
			SiteTag:  a.Tag(),
			SiteName: a.Name(),
			URL:      a.baseURL + attr(link, "href"),
			Start:    start,
			Length:   length,
		})
	}
	domain.SortContests(contests)
	return contests, nil
}

// FetchProfile reads the rating from the user page. AtCoder has no real names.
func (a *AtCoder) FetchProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	profileURL := a.baseURL + "/users/" + url.PathEscape(handle)
	body, err := a.fetch.Get(ctx, kindProfile, profileURL)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("atcoder: parsing profile: %w", err)
	}

	profile := &domain.Profile{
		Handle:   handle,
		SiteTag:  a.Tag(),
		SiteName: a.Name(),
		URL:      profileURL,
	}

	heading := find(doc, byText("th", "Rating"))
	if heading == nil {
		// Unrated.
		return profile, nil
	}
	cell := nextElement(heading)
	if cell == nil {
		return nil, fmt.Errorf("atcoder: rating cell not found")
	}
	span := find(cell, byTag("span"))
	if span == nil {
		return nil, fmt.Errorf("atcoder: rating value not found")
	}
	rating, err := strconv.Atoi(textContent(span))
	if err != nil {
		return nil, fmt.Errorf("atcoder: parsing rating: %w", err)
	}
	profile.Rating = domain.Rating(rating)
	return profile, nil
}

// parseHoursMinutes parses durations like "01:40".
func parseHoursMinutes(s string) (time.Duration, error) {
	hrs, mins, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	h, err := strconv.Atoi(hrs)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	m, err := strconv.Atoi(mins)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
