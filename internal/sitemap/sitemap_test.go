package sitemap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
articles:
  - slug: older-post
    title: Older post
    date: "2025-11-02"
    category: notes
  - slug: newest-post
    title: Newest post
    date: "2026-02-14"
    updated: "2026-03-01"
    category: video
  - slug: middle-post
    title: Middle post
    date: "2026-01-20"
    category: notes
`

func TestParse(t *testing.T) {
	articles, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("len(articles) = %d, want 3", len(articles))
	}
	if articles[1].Updated != "2026-03-01" {
		t.Errorf("Updated = %q, want %q", articles[1].Updated, "2026-03-01")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	articles, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(articles) != 3 {
		t.Errorf("len(articles) = %d, want 3", len(articles))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("articles: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate_Rejects(t *testing.T) {
	valid := Article{Slug: "ok-slug", Date: "2026-01-01"}

	tests := []struct {
		name     string
		articles []Article
	}{
		{"empty slug", []Article{{Slug: "", Date: "2026-01-01"}}},
		{"uppercase slug", []Article{{Slug: "Bad-Slug", Date: "2026-01-01"}}},
		{"slug with slash", []Article{{Slug: "a/b", Date: "2026-01-01"}}},
		{"duplicate slug", []Article{valid, valid}},
		{"bad date", []Article{{Slug: "x", Date: "01/02/2026"}}},
		{"missing date", []Article{{Slug: "x"}}},
		{"bad updated", []Article{{Slug: "x", Date: "2026-01-01", Updated: "yesterday"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.articles)
			if !errors.Is(err, ErrInvalidDataset) {
				t.Errorf("Validate() error = %v, want ErrInvalidDataset", err)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	articles, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var buf bytes.Buffer
	n, err := Generate(&buf, "https://maneh.net/", articles)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n != 4 {
		t.Errorf("url count = %d, want 4", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML header: %q", out[:40])
	}
	if !strings.Contains(out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`) {
		t.Error("missing urlset namespace")
	}

	wantOrder := []string{
		"<loc>https://maneh.net/</loc>",
		"<loc>https://maneh.net/#/article/newest-post</loc>",
		"<loc>https://maneh.net/#/article/middle-post</loc>",
		"<loc>https://maneh.net/#/article/older-post</loc>",
	}
	last := -1
	for _, loc := range wantOrder {
		idx := strings.Index(out, loc)
		if idx < 0 {
			t.Fatalf("missing %s in:\n%s", loc, out)
		}
		if idx < last {
			t.Errorf("%s is out of order", loc)
		}
		last = idx
	}

	home := "<loc>https://maneh.net/</loc>\n    <lastmod>2026-03-01</lastmod>\n    <changefreq>daily</changefreq>\n    <priority>1.0</priority>"
	if !strings.Contains(out, home) {
		t.Errorf("home entry not found in:\n%s", out)
	}
	updated := "<loc>https://maneh.net/#/article/newest-post</loc>\n    <lastmod>2026-03-01</lastmod>\n    <changefreq>monthly</changefreq>\n    <priority>0.8</priority>"
	if !strings.Contains(out, updated) {
		t.Errorf("article entry should use updated date:\n%s", out)
	}
}

func TestGenerate_HomeLastModUsesLatestUpdate(t *testing.T) {
	articles := []Article{
		{Slug: "newest", Date: "2026-02-01"},
		{Slug: "older-but-revised", Date: "2025-06-01", Updated: "2026-04-10"},
	}

	var buf bytes.Buffer
	if _, err := Generate(&buf, "https://maneh.net", articles); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := "<loc>https://maneh.net/</loc>\n    <lastmod>2026-04-10</lastmod>"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("home lastmod should be the latest update:\n%s", buf.String())
	}
}

func TestGenerate_NoArticles(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(&buf, "https://maneh.net", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n != 1 {
		t.Errorf("url count = %d, want 1", n)
	}
	if strings.Contains(buf.String(), "<lastmod>") {
		t.Error("home entry should have no lastmod without articles")
	}
}

func TestGenerate_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "maneh.net", "ftp://maneh.net", "https://"} {
		t.Run(base, func(t *testing.T) {
			if _, err := Generate(&bytes.Buffer{}, base, nil); err == nil {
				t.Errorf("Generate(%q) expected error", base)
			}
		})
	}
}
