// Package sitemap loads the blog's article dataset and renders sitemap.xml.
package sitemap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the date format used in the dataset and in <lastmod>.
const DateLayout = "2006-01-02"

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ErrInvalidDataset is returned when the article dataset fails validation.
var ErrInvalidDataset = errors.New("invalid article dataset")

// Article is one published post.
type Article struct {
	Slug     string `yaml:"slug"`
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Updated  string `yaml:"updated,omitempty"`
	Category string `yaml:"category"`
}

// LastModified returns Updated when set, otherwise Date.
func (a Article) LastModified() string {
	if a.Updated != "" {
		return a.Updated
	}
	return a.Date
}

type dataset struct {
	Articles []Article `yaml:"articles"`
}

// Load reads and validates the YAML dataset at path.
func Load(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles %s: %w", path, err)
	}
	articles, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("articles %s: %w", path, err)
	}
	return articles, nil
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) ([]Article, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(ds.Articles); err != nil {
		return nil, err
	}
	return ds.Articles, nil
}

// Validate checks slugs and dates. Slugs must be unique.
func Validate(articles []Article) error {
	seen := make(map[string]bool, len(articles))
	for i, a := range articles {
		if !slugPattern.MatchString(a.Slug) {
			return fmt.Errorf("%w: article %d: slug %q must match [a-z0-9-]+", ErrInvalidDataset, i, a.Slug)
		}
		if seen[a.Slug] {
			return fmt.Errorf("%w: duplicate slug %q", ErrInvalidDataset, a.Slug)
		}
		seen[a.Slug] = true

		if _, err := time.Parse(DateLayout, a.Date); err != nil {
			return fmt.Errorf("%w: article %q: date %q is not YYYY-MM-DD", ErrInvalidDataset, a.Slug, a.Date)
		}
		if a.Updated != "" {
			if _, err := time.Parse(DateLayout, a.Updated); err != nil {
				return fmt.Errorf("%w: article %q: updated %q is not YYYY-MM-DD", ErrInvalidDataset, a.Slug, a.Updated)
			}
		}
	}
	return nil
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Generate writes the sitemap for baseURL and returns the number of URLs.
// The home page comes first, then articles newest first. Articles are
// expected to be validated already.
func Generate(w io.Writer, baseURL string, articles []Article) (int, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return 0, fmt.Errorf("base url must be an absolute http(s) URL; got %q", baseURL)
	}
	base := strings.TrimRight(baseURL, "/")

	sorted := slices.Clone(articles)
	// ISO dates order lexically. Slug breaks ties so output is stable.
	slices.SortStableFunc(sorted, func(a, b Article) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})

	// The home page changes whenever any article does.
	home := urlEntry{Loc: base + "/", ChangeFreq: "daily", Priority: "1.0"}
	for _, a := range sorted {
		if lm := a.LastModified(); lm > home.LastMod {
			home.LastMod = lm
		}
	}

	set := urlSet{Xmlns: xmlns, URLs: make([]urlEntry, 0, len(sorted)+1)}
	set.URLs = append(set.URLs, home)
	for _, a := range sorted {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        base + "/#/article/" + a.Slug,
			LastMod:    a.LastModified(),
			ChangeFreq: "monthly",
			Priority:   "0.8",
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return 0, fmt.Errorf("encode sitemap: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	return len(set.URLs), nil
}
