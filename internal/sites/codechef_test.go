package sites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChef_FetchFutureContests(t *testing.T) {
	srv := serve(t, map[string][]byte{"/contests": fixture(t, "codechef_contests.html")})
	site := NewCodeChef(srv.URL, testFetcher(TagCodeChef, false))

	contests, err := site.FetchFutureContests(context.Background())
	require.NoError(t, err)
	require.Len(t, contests, 2, "present contests are not included")

	lunch := contests[0]
	assert.Equal(t, "September Lunchtime 2018", lunch.Name)
	assert.Equal(t, srv.URL+"/LTIME64", lunch.URL)
	assert.True(t, lunch.Start.Equal(time.Date(2018, 9, 7, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 3*time.Hour, lunch.Length)

	cook := contests[1]
	assert.Equal(t, "September Cook-Off 2018", cook.Name)
	assert.Equal(t, 2*time.Hour+30*time.Minute, cook.Length)
	assert.Equal(t, "CodeChef", cook.SiteName)
}

func TestCodeChef_FetchProfile(t *testing.T) {
	srv := serve(t, map[string][]byte{"/users/gennady": fixture(t, "codechef_user.html")})
	site := NewCodeChef(srv.URL, testFetcher(TagCodeChef, false))

	p, err := site.FetchProfile(context.Background(), "gennady")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Gennady Korotkevich", p.Name)
	assert.Equal(t, srv.URL+"/sites/default/files/uploads/pictures/avatar.jpg", p.Avatar)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 2711, *p.Rating)
}

func TestCodeChef_ZeroRatingIsUnrated(t *testing.T) {
	srv := serve(t, map[string][]byte{"/users/fresh": fixture(t, "codechef_user_unrated.html")})
	site := NewCodeChef(srv.URL, testFetcher(TagCodeChef, false))

	p, err := site.FetchProfile(context.Background(), "fresh")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.Rating)
}

func TestCodeChef_RedirectMeansNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/teams/view/someteam", http.StatusFound)
	}))
	defer srv.Close()
	site := NewCodeChef(srv.URL, testFetcher(TagCodeChef, false))

	p, err := site.FetchProfile(context.Background(), "someteam")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCodeChef_NotFound(t *testing.T) {
	srv := serve(t, map[string][]byte{})
	site := NewCodeChef(srv.URL, testFetcher(TagCodeChef, false))

	p, err := site.FetchProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}
