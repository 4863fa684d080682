package devpost_client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/clients"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Config points the importer at a hackathon's project gallery.
type Config struct {
	GalleryURL string        `yaml:"gallery_url" env:"DEVPOST_GALLERY_URL"`
	MaxPages   int           `yaml:"max_pages" env:"DEVPOST_MAX_PAGES" envDefault:"20"`
	Timeout    time.Duration `yaml:"timeout" env:"DEVPOST_TIMEOUT" envDefault:"30s"`
}

type DevpostClient struct {
	*clients.BaseClient
	galleryPath string
	maxPages    int
}

func NewDevpostClient(cfg Config) (*DevpostClient, error) {
	if cfg.GalleryURL == "" {
		return nil, errors.New("devpost gallery url is required")
	}
	u, err := url.Parse(cfg.GalleryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid devpost gallery url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("devpost gallery url %q must be absolute", cfg.GalleryURL)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	client := &DevpostClient{
		BaseClient:  clients.NewBaseClient(u.Scheme + "://" + u.Host),
		galleryPath: u.EscapedPath(),
		maxPages:    maxPages,
	}
	client.SetHeader(HTMLHeader, HTMLContentType)
	client.SetHeader(UserAgentHeader, UserAgent)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return client, nil
}

// ImportProjects walks the gallery pages until one comes back empty and
// returns every entry, first occurrence of each project kept.
func (c *DevpostClient) ImportProjects(ctx context.Context) ([]models.ImportedProject, error) {
	var (
		out  []models.ImportedProject
		seen = make(map[string]bool)
	)
	for page := 1; page <= c.maxPages; page++ {
		body, err := c.Get(ctx, c.pageEndpoint(page))
		if err != nil {
			var statusErr *clients.StatusError
			if page > 1 && errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				break
			}
			return nil, fmt.Errorf("failed to fetch gallery page %d: %w", page, err)
		}

		entries, err := ParseGallery(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse gallery page %d: %w", page, err)
		}
		if len(entries) == 0 {
			break
		}

		added := 0
		for _, e := range entries {
			if seen[e.DevpostID] {
				continue
			}
			seen[e.DevpostID] = true
			out = append(out, e)
			added++
		}
		log.Debug().Int("page", page).Int("projects", added).Msg("imported devpost gallery page")
		if added == 0 {
			break
		}
	}

	log.Info().Int("projects", len(out)).Msg("devpost import finished")
	return out, nil
}

func (c *DevpostClient) pageEndpoint(page int) string {
	q := url.Values{}
	q.Set(pageParam, strconv.Itoa(page))
	return c.galleryPath + "?" + q.Encode()
}
