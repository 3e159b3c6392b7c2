package domain

import "strconv"

// User is a chat platform user known to the bot.
type User struct {
	DiscordID   string    `json:"discordId" bson:"discord_id"`
	DMChannelID string    `json:"dmChannelId,omitempty" bson:"dm_channel_id,omitempty"`
	Profiles    []Profile `json:"profiles,omitempty" bson:"site_profiles"`
}

// Profile returns the user's profile for a site.
func (u *User) Profile(siteTag string) (Profile, bool) {
	for _, p := range u.Profiles {
		if p.SiteTag == siteTag {
			return p, true
		}
	}
	return Profile{}, false
}

// SetProfile stores p, replacing any profile for the same site, and returns
// the replaced profile if there was one.
func (u *User) SetProfile(p Profile) (Profile, bool) {
	for i, existing := range u.Profiles {
		if existing.SiteTag == p.SiteTag {
			u.Profiles[i] = p
			return existing, true
		}
	}
	u.Profiles = append(u.Profiles, p)
	return Profile{}, false
}

// DeleteProfile removes the profile for a site and reports whether one existed.
func (u *User) DeleteProfile(siteTag string) bool {
	for i, p := range u.Profiles {
		if p.SiteTag == siteTag {
			u.Profiles = append(u.Profiles[:i], u.Profiles[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (u User) Clone() User {
	out := u
	out.Profiles = make([]Profile, len(u.Profiles))
	for i, p := range u.Profiles {
		if p.Rating != nil {
			p.Rating = Rating(*p.Rating)
		}
		out.Profiles[i] = p
	}
	return out
}

func itoa(v int) string { return strconv.Itoa(v) }
