package devpost_client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/clients/devpost_client"
)

func entry(slug, name string, members ...string) string {
	var imgs strings.Builder
	for _, m := range members {
		fmt.Fprintf(&imgs, `<span class="user-profile-link"><img alt="%s" src="/a.png"></span>`, m)
	}
	return fmt.Sprintf(`
<div class="gallery-item">
  <a class="block-wrapper-link fade link-to-software" href="https://devpost.com/software/%s">
    <div class="software-entry">
      <div class="main">
        <h5>
          %s
        </h5>
        <p class="small tagline">Something clever</p>
      </div>
      <div class="footer"><div class="members">%s</div></div>
    </div>
  </a>
</div>`, slug, name, imgs.String())
}

func page(entries ...string) string {
	return `<html><body><div id="submission-gallery">` + strings.Join(entries, "") + `</div></body></html>`
}

func TestParseGallery(t *testing.T) {
	html := page(
		entry("mars-rover", "Mars Rover", "Ada Lovelace", "Grace Hopper"),
		entry("lander", "Lander &amp; Co"),
		`<a class="link-to-software" href="/not-a-project">nope</a>`,
	)

	projects, err := devpost_client.ParseGallery(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "mars-rover", projects[0].DevpostID)
	assert.Equal(t, "Mars Rover", projects[0].Name)
	assert.Equal(t, "https://devpost.com/software/mars-rover", projects[0].DevpostURL)
	assert.Equal(t, []string{"Ada Lovelace", "Grace Hopper"}, projects[0].TeamMembers)

	assert.Equal(t, "lander", projects[1].DevpostID)
	assert.Equal(t, "Lander & Co", projects[1].Name)
	assert.Empty(t, projects[1].TeamMembers)
}

func TestImportProjectsFollowsPagesUntilEmpty(t *testing.T) {
	pages := map[string]string{
		"1": page(entry("a", "A"), entry("b", "B")),
		"2": page(entry("b", "B"), entry("c", "C")),
		"3": page(),
	}
	var (
		mu        sync.Mutex
		requested []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project-gallery", r.URL.Path)
		assert.Equal(t, devpost_client.UserAgent, r.Header.Get("User-Agent"))
		p := r.URL.Query().Get("page")
		mu.Lock()
		requested = append(requested, p)
		mu.Unlock()
		_, _ = w.Write([]byte(pages[p]))
	}))
	defer srv.Close()

	client, err := devpost_client.NewDevpostClient(devpost_client.Config{GalleryURL: srv.URL + "/project-gallery", MaxPages: 10})
	require.NoError(t, err)

	projects, err := client.ImportProjects(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, p := range projects {
		ids = append(ids, p.DevpostID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3"}, requested)
}

func TestImportProjectsStopsAtMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("page")
		_, _ = w.Write([]byte(page(entry("p"+p, "P"))))
	}))
	defer srv.Close()

	client, err := devpost_client.NewDevpostClient(devpost_client.Config{GalleryURL: srv.URL + "/g", MaxPages: 2})
	require.NoError(t, err)

	projects, err := client.ImportProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestImportProjectsSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := devpost_client.NewDevpostClient(devpost_client.Config{GalleryURL: srv.URL + "/g", MaxPages: 3})
	require.NoError(t, err)

	_, err = client.ImportProjects(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewDevpostClientValidatesURL(t *testing.T) {
	_, err := devpost_client.NewDevpostClient(devpost_client.Config{})
	assert.Error(t, err)
	_, err = devpost_client.NewDevpostClient(devpost_client.Config{GalleryURL: "project-gallery"})
	assert.Error(t, err)
}
