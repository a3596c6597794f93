package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"maneh-edge/internal/sitemap"
)

// Set by goreleaser ldflags.
var version = "dev"

type cli struct {
	Articles string `kong:"default='data/articles.yaml',help='Path to the YAML article dataset.',env='ARTICLES_PATH'"`
	BaseURL  string `kong:"default='https://maneh.net',help='Canonical site origin.',env='BASE_URL'"`
	Out      string `kong:"short='o',default='sitemap.xml',help='Output file; - writes to stdout.'"`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("maneh-sitemap"),
		kong.Description("Generate sitemap.xml from the article dataset."),
		kong.Vars{"version": version},
	)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(c, logger); err != nil {
		logger.Error("sitemap generation failed", "err", err)
		os.Exit(1)
	}
}

func run(c cli, logger *slog.Logger) error {
	articles, err := sitemap.Load(c.Articles)
	if err != nil {
		return err
	}

	if c.Out == "-" {
		n, err := sitemap.Generate(os.Stdout, c.BaseURL, articles)
		if err != nil {
			return err
		}
		logger.Info("sitemap written", "path", "stdout", "urls", n)
		return nil
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	n, err := sitemap.Generate(f, c.BaseURL, articles)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", c.Out, cerr)
	}
	if err != nil {
		return err
	}

	logger.Info("sitemap written", "path", c.Out, "urls", n)
	return nil
}
