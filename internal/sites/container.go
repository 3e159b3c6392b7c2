package sites

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// ErrUnknownSite is returned for a tag no registered site has.
var ErrUnknownSite = errors.New("unknown site")

// UserSource lists the users whose profiles are refreshed.
type UserSource interface {
	Users() []domain.User
}

// ProfileHook is called with each freshly fetched profile. old is the
// profile currently stored for user.
type ProfileHook interface {
	OnProfileFetch(ctx context.Context, user domain.User, old, fetched domain.Profile) error
}

// Entry is a site with its refresh schedule.
type Entry struct {
	Site           Site
	ContestRefresh time.Duration
	ProfileRefresh time.Duration
	ProfileDelay   time.Duration
}

// Container merges the contests of several sites and refreshes them on a
// schedule. Queries are safe for concurrent use.
type Container struct {
	entries []Entry
	byTag   map[string]Entry
	log     *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.RWMutex
	contests    map[string][]domain.Contest
	lastFetched map[string]time.Time
	users       UserSource
	hook        ProfileHook

	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewContainer creates a Container over the given sites.
func NewContainer(entries []Entry, log *logging.Logger, m *metrics.Metrics) *Container {
	byTag := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byTag[e.Site.Tag()] = e
	}
	return &Container{
		entries:     entries,
		byTag:       byTag,
		log:         log.Sub("sites"),
		metrics:     m,
		now:         time.Now,
		contests:    make(map[string][]domain.Contest),
		lastFetched: make(map[string]time.Time),
	}
}

// New builds the enabled sites from configuration.
func New(cfg config.SitesConfig, userAgent string, log *logging.Logger, m *metrics.Metrics) *Container {
	fetcherConfig := func(followRedirects bool) FetcherConfig {
		return FetcherConfig{
			Timeout:         time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
			BreakerFailures: uint32(max(cfg.BreakerFailures, 0)),
			BreakerCooldown: time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
			UserAgent:       userAgent,
			FollowRedirects: followRedirects,
		}
	}
	entry := func(site Site, sc config.SiteConfig) Entry {
		return Entry{
			Site:           site,
			ContestRefresh: sc.ContestRefresh(),
			ProfileRefresh: sc.ProfileRefresh(),
			ProfileDelay:   sc.ProfileDelay(),
		}
	}

	var entries []Entry
	if cfg.AtCoder.Enabled {
		f := NewFetcher(TagAtCoder, fetcherConfig(true), log, m)
		entries = append(entries, entry(NewAtCoder(cfg.AtCoder.BaseURL, f), cfg.AtCoder))
	}
	if cfg.CodeChef.Enabled {
		f := NewFetcher(TagCodeChef, fetcherConfig(false), log, m)
		entries = append(entries, entry(NewCodeChef(cfg.CodeChef.BaseURL, f), cfg.CodeChef))
	}
	if cfg.Codeforces.Enabled {
		f := NewFetcher(TagCodeforces, fetcherConfig(true), log, m)
		entries = append(entries, entry(NewCodeforces(cfg.Codeforces.BaseURL, f), cfg.Codeforces))
	}
	return NewContainer(entries, log, m)
}

// SetProfileHandlers registers where profile refreshes read users from and
// report to. Without them profile refresh is skipped.
func (c *Container) SetProfileHandlers(users UserSource, hook ProfileHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = users
	c.hook = hook
}

// Start fetches contests from every site once, then schedules contest and
// profile refreshes. Initial fetch failures are logged, not returned.
func (c *Container) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("initial contest fetch incomplete")
	}

	logger := cronLogger{log: c.log}
	c.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for _, e := range c.entries {
		if e.ContestRefresh > 0 {
			c.cron.Schedule(cron.Every(e.ContestRefresh), cron.FuncJob(func() {
				if err := c.refreshSite(ctx, e.Site); err != nil {
					c.log.Warn().Err(err).Str("site", e.Site.Tag()).Msg("contest refresh failed, continuing regardless")
				}
			}))
		}
		if e.ProfileRefresh > 0 {
			c.cron.Schedule(cron.Every(e.ProfileRefresh), cron.FuncJob(func() {
				c.refreshProfiles(ctx, e)
			}))
		}
	}
	c.cron.Start()
	c.log.Info().Strs("sites", c.Tags()).Msg("site refresh scheduled")
}

// Stop cancels scheduled refreshes and waits for running ones to return.
func (c *Container) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// Refresh fetches contests from every site once.
func (c *Container) Refresh(ctx context.Context) error {
	var errs []error
	for _, e := range c.entries {
		if err := c.refreshSite(ctx, e.Site); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Site.Tag(), err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) refreshSite(ctx context.Context, site Site) error {
	contests, err := site.FetchFutureContests(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.contests[site.Tag()] = contests
	c.lastFetched[site.Tag()] = c.now()
	c.mu.Unlock()

	c.metrics.SetContests(site.Tag(), len(contests))
	c.log.Info().Str("site", site.Tag()).Int("upcoming", len(contests)).Msg("contests updated")
	return nil
}

func (c *Container) refreshProfiles(ctx context.Context, e Entry) {
	c.mu.RLock()
	users, hook := c.users, c.hook
	c.mu.RUnlock()
	if users == nil || hook == nil {
		c.log.Debug().Msg("profile handlers not registered")
		return
	}

	tag := e.Site.Tag()
	for _, user := range users.Users() {
		old, ok := user.Profile(tag)
		if !ok {
			continue
		}

		fetched, err := e.Site.FetchProfile(ctx, old.Handle)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("site", tag).Str("handle", old.Handle).Msg("profile fetch failed")
		case fetched == nil:
			c.log.Info().Str("site", tag).Str("handle", old.Handle).Msg("handle no longer exists")
		default:
			c.log.Debug().Str("site", tag).Str("handle", old.Handle).Msg("profile fetched")
			if err := hook.OnProfileFetch(ctx, user, old, *fetched); err != nil {
				c.log.Error().Err(err).Str("site", tag).Str("user", user.DiscordID).Msg("profile hook failed")
			}
		}

		if !sleep(ctx, e.ProfileDelay) {
			return
		}
	}
}

// FutureContests returns up to n upcoming contests from the given sites,
// or from all sites when tags is empty. n <= 0 means no limit.
func (c *Container) FutureContests(n int, tags []string) []domain.Contest {
	out := c.upcoming(tags)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ContestsBefore returns upcoming contests starting no later than t.
func (c *Container) ContestsBefore(t time.Time, tags []string) []domain.Contest {
	var out []domain.Contest
	for _, contest := range c.upcoming(tags) {
		if !contest.Start.After(t) {
			out = append(out, contest)
		}
	}
	return out
}

// upcoming merges cached contests, dropping any that started since the last
// refresh.
func (c *Container) upcoming(tags []string) []domain.Contest {
	c.mu.RLock()
	var merged []domain.Contest
	for tag, contests := range c.contests {
		if len(tags) > 0 && !slices.Contains(tags, tag) {
			continue
		}
		merged = append(merged, contests...)
	}
	c.mu.RUnlock()

	domain.SortContests(merged)
	return domain.FutureOnly(merged, c.now())
}

// SiteName returns the display name for a tag.
func (c *Container) SiteName(tag string) (string, bool) {
	e, ok := c.byTag[tag]
	if !ok {
		return "", false
	}
	return e.Site.Name(), true
}

// Tags returns the registered site tags in registration order.
func (c *Container) Tags() []string {
	tags := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		tags = append(tags, e.Site.Tag())
	}
	return tags
}

// LastFetched returns when each site's contests were last refreshed.
func (c *Container) LastFetched() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Time, len(c.lastFetched))
	for tag, t := range c.lastFetched {
		out[tag] = t
	}
	return out
}

// SiteStats summarises one site for status output.
type SiteStats struct {
	Tag         string
	Name        string
	Contests    int
	LastFetched time.Time
	Breaker     string
}

// Stats returns per-site cache statistics in registration order.
func (c *Container) Stats() []SiteStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SiteStats, 0, len(c.entries))
	for _, e := range c.entries {
		tag := e.Site.Tag()
		st := SiteStats{
			Tag:         tag,
			Name:        e.Site.Name(),
			Contests:    len(c.contests[tag]),
			LastFetched: c.lastFetched[tag],
		}
		if b, ok := e.Site.(interface{ BreakerState() string }); ok {
			st.Breaker = b.BreakerState()
		}
		out = append(out, st)
	}
	return out
}

// FetchProfile fetches a profile from the site with the given tag.
func (c *Container) FetchProfile(ctx context.Context, tag, handle string) (*domain.Profile, error) {
	e, ok := c.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, tag)
	}
	profile, err := e.Site.FetchProfile(ctx, handle)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("site", tag).Str("handle", handle).Bool("found", profile != nil).Msg("profile fetched")
	return profile, nil
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
