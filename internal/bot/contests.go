package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
)

const (
	emSpace         = " "
	contestTimeFmt  = "02 Jan 06, 15:04"
	countAll        = "all"
	countDay        = "day"
	titleUpcoming   = "Upcoming contests"
	titleNextDay    = "Contests that start under 24 hours from now"
	noContestsFound = "*No contest found*"
)

func runNext(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	var tags, names []string
	cnt := ""
	for _, arg := range args {
		arg = strings.ToLower(arg)
		if name, ok := b.sites.SiteName(arg); ok {
			if !slices.Contains(tags, arg) {
				tags = append(tags, arg)
				names = append(names, name)
			}
			continue
		}
		if cnt != "" {
			return usageErrorf(msg, "more than one cnt argument")
		}
		if arg != countAll && arg != countDay {
			if n, err := strconv.Atoi(arg); err != nil || n <= 0 {
				return usageErrorf(msg, "unrecognized argument %q", arg)
			}
		}
		cnt = arg
	}

	var contests []domain.Contest
	switch cnt {
	case countDay:
		contests = b.sites.ContestsBefore(b.now().Add(24*time.Hour), tags)
	case countAll:
		contests = b.sites.FutureContests(0, tags)
	case "":
		contests = b.sites.FutureContests(1, tags)
	default:
		n, _ := strconv.Atoi(cnt)
		contests = b.sites.FutureContests(n, tags)
	}
	b.log.Debug().Str("cnt", cnt).Strs("sites", tags).Int("found", len(contests)).Msg("contests queried")

	if len(contests) == 0 {
		return b.sendText(ctx, msg.ChannelID, noContestsFound)
	}
	reply := contestsMessage(contests, cnt == countDay, names, b.opts.Location)
	return b.paginateAndSend(ctx, msg.ChannelID, reply, b.opts.ContestsPerPage, 1)
}

// contestsMessage renders contests as embed fields with aligned columns.
func contestsMessage(contests []domain.Contest, day bool, siteNames []string, loc *time.Location) discord.MessageSend {
	type row struct {
		name, site, start, duration, url string
	}
	rows := make([]row, 0, len(contests))
	siteWidth, durationWidth := 0, 0
	for _, c := range contests {
		r := row{
			name:     c.Name,
			site:     c.SiteName,
			start:    c.Start.In(loc).Format(contestTimeFmt),
			duration: formatDuration(c.Length),
			url:      c.URL,
		}
		siteWidth = max(siteWidth, utf8.RuneCountInString(r.site))
		durationWidth = max(durationWidth, utf8.RuneCountInString(r.duration))
		rows = append(rows, r)
	}

	fields := make([]discord.EmbedField, 0, len(rows))
	for _, r := range rows {
		value := "`" + padRight(r.site, siteWidth) + emSpace + "|" +
			emSpace + r.start + emSpace + "|" +
			emSpace + padLeft(r.duration, durationWidth) + emSpace + "|" +
			emSpace + "`" + fmt.Sprintf("[`link ◳`](%s \"Link to contest page\")", r.url)
		fields = append(fields, discord.EmbedField{Name: r.name, Value: value})
	}

	title := titleUpcoming
	if day {
		title = titleNextDay
	}
	embed := &discord.Embed{Fields: fields}
	if len(siteNames) > 0 {
		embed.Description = "Showing only: " + strings.Join(siteNames, ", ")
	}
	return discord.MessageSend{Content: "*" + title + "*", Embed: embed}
}

// formatDuration renders d as "1d 2h 30m", omitting zero days.
func formatDuration(d time.Duration) string {
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := total % (24 * 60) / 60
	mins := total % 60
	s := fmt.Sprintf("%dh %dm", hours, mins)
	if days > 0 {
		s = fmt.Sprintf("%dd %s", days, s)
	}
	return s
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(emSpace, width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(emSpace, width-n) + s
	}
	return s
}
