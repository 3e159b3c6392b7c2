// Package domain holds the value types shared by sites, storage and the bot.
package domain

import (
	"sort"
	"time"
)

// Contest is one scheduled contest on a competitive programming site.
type Contest struct {
	Name     string        `json:"name" bson:"name"`
	SiteTag  string        `json:"siteTag" bson:"site_tag"`
	SiteName string        `json:"siteName" bson:"site_name"`
	URL      string        `json:"url" bson:"url"`
	Start    time.Time     `json:"start" bson:"start"`
	Length   time.Duration `json:"length" bson:"length"`
}

// End returns when the contest finishes.
func (c Contest) End() time.Time {
	return c.Start.Add(c.Length)
}

// Less orders contests by start time, then length, then site name.
func (c Contest) Less(o Contest) bool {
	if !c.Start.Equal(o.Start) {
		return c.Start.Before(o.Start)
	}
	if c.Length != o.Length {
		return c.Length < o.Length
	}
	return c.SiteName < o.SiteName
}

// SortContests sorts in place using Contest.Less.
func SortContests(cs []Contest) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

// FutureOnly returns the contests that start after now, preserving order.
func FutureOnly(cs []Contest, now time.Time) []Contest {
	out := make([]Contest, 0, len(cs))
	for _, c := range cs {
		if c.Start.After(now) {
			out = append(out, c)
		}
	}
	return out
}
