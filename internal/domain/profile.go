package domain

// Profile is a user's account on one site.
type Profile struct {
	Handle   string `json:"handle" bson:"handle"`
	SiteTag  string `json:"siteTag" bson:"site_tag"`
	SiteName string `json:"siteName" bson:"site_name"`
	URL      string `json:"url" bson:"url"`
	Avatar   string `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Name     string `json:"name,omitempty" bson:"name,omitempty"`
	Rating   *int   `json:"rating,omitempty" bson:"rating,omitempty"` // nil when unrated
}

// SameNameAndRating reports whether the fields users get notified about are unchanged.
func (p Profile) SameNameAndRating(o Profile) bool {
	if p.Name != o.Name {
		return false
	}
	switch {
	case p.Rating == nil && o.Rating == nil:
		return true
	case p.Rating == nil || o.Rating == nil:
		return false
	default:
		return *p.Rating == *o.Rating
	}
}

// Equal reports whether every field matches.
func (p Profile) Equal(o Profile) bool {
	return p.Handle == o.Handle &&
		p.SiteTag == o.SiteTag &&
		p.SiteName == o.SiteName &&
		p.URL == o.URL &&
		p.Avatar == o.Avatar &&
		p.SameNameAndRating(o)
}

// RatingString formats the rating, or "Unrated".
func (p Profile) RatingString() string {
	if p.Rating == nil {
		return "Unrated"
	}
	return itoa(*p.Rating)
}

// DisplayName returns the real name, falling back to the handle.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return p.Handle
	}
	return p.Name
}

// Rating is a convenience constructor for Profile.Rating.
func Rating(v int) *int { return &v }
