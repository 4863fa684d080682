package devpost_client

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// ParseGallery extracts the project entries of one gallery page. An entry is
// an anchor with the link-to-software class; its slug is the Devpost id, its
// first h5 the name and the image alts under .members the team.
func ParseGallery(r io.Reader) ([]models.ImportedProject, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var out []models.ImportedProject
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && hasClass(n, entryLinkClass) {
			if p, ok := parseEntry(n); ok {
				out = append(out, p)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func parseEntry(a *html.Node) (models.ImportedProject, bool) {
	href := attr(a, "href")
	id := slug(href)
	if id == "" {
		return models.ImportedProject{}, false
	}

	p := models.ImportedProject{
		DevpostID:   id,
		DevpostURL:  href,
		TeamMembers: []string{},
	}
	if h := find(a, func(n *html.Node) bool { return n.DataAtom == atom.H5 }); h != nil {
		p.Name = strings.Join(strings.Fields(text(h)), " ")
	}
	if p.Name == "" {
		p.Name = id
	}
	if members := find(a, func(n *html.Node) bool { return hasClass(n, membersClass) }); members != nil {
		each(members, func(n *html.Node) {
			if n.DataAtom == atom.Img {
				if name := strings.TrimSpace(attr(n, "alt")); name != "" {
					p.TeamMembers = append(p.TeamMembers, name)
				}
			}
		})
	}
	return p, true
}

// slug returns the last path element of a /software/<slug> link.
func slug(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.Contains(u.Path, softwarePath) {
		return ""
	}
	s := path.Base(strings.TrimSuffix(u.Path, "/"))
	if s == "." || s == "/" || s == "software" {
		return ""
	}
	return s
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// find returns the first element below n that matches.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

// each visits every element below n.
func each(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		each(c, fn)
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
