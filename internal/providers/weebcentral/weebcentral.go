package weebcentral

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/yuigahama/tsundoku/internal/models"
)

// WeebCentralProvider implements the Provider interface for WeebCentral by
// scraping its HTMX endpoints.
type WeebCentralProvider struct {
	client  *http.Client
	baseURL string
}

func New() *WeebCentralProvider {
	// The site sets session cookies on the first response and expects them
	// back on subsequent HTMX requests.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &WeebCentralProvider{
		client:  &http.Client{Timeout: 30 * time.Second, Jar: jar},
		baseURL: "https://weebcentral.com",
	}
}

func (p *WeebCentralProvider) GetInfo() models.ProviderInfo {
	return models.ProviderInfo{
		ID:   "weebcentral",
		Name: "WeebCentral",
	}
}

func (p *WeebCentralProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	searchURL := fmt.Sprintf("%s/search/simple?location=main", p.baseURL)
	form := url.Values{}
	form.Set("text", query)
	body := bytes.NewBufferString(form.Encode())

	req, err := http.NewRequestWithContext(ctx, "POST", searchURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Trigger", "quick-search-input")
	req.Header.Set("HX-Trigger-Name", "text")
	req.Header.Set("HX-Target", "quick-search-result")
	req.Header.Set("HX-Current-URL", p.baseURL+"/")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	doc.Find("#quick-search-result > div > a").Each(func(i int, s *goquery.Selection) {
		link, exists := s.Attr("href")
		if !exists {
			return
		}
		title := strings.TrimSpace(s.Find(".flex-1").Text())
		var image string
		if src, ok := s.Find("source").Attr("srcset"); ok {
			image = src
		} else if src, ok := s.Find("img").Attr("src"); ok {
			image = src
		}
		// Extract the series id from the link, format '/series/{id}/...'
		idPart := ""
		parts := strings.Split(link, "/series/")
		if len(parts) > 1 {
			idPart = strings.Split(parts[1], "/")[0]
		}
		if idPart == "" {
			return
		}
		results = append(results, models.SearchResult{
			Title:      title,
			CoverURL:   image,
			Identifier: idPart,
		})
	})
	if len(results) == 0 {
		return nil, errors.New("no results found")
	}
	return results, nil
}

var chapterNumberRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// GetChapters scrapes the full chapter list of a series, most recent first
// (the site lists newest chapters at the top).
func (p *WeebCentralProvider) GetChapters(ctx context.Context, seriesIdentifier string) ([]models.ChapterResult, error) {
	chapterURL := fmt.Sprintf("%s/series/%s/full-chapter-list", p.baseURL, seriesIdentifier)
	req, err := http.NewRequestWithContext(ctx, "GET", chapterURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "chapter-list")
	req.Header.Set("HX-Current-URL", fmt.Sprintf("%s/series/%s", p.baseURL, seriesIdentifier))
	req.Header.Set("Referer", fmt.Sprintf("%s/series/%s", p.baseURL, seriesIdentifier))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var chapters []models.ChapterResult
	doc.Find("div.flex.items-center").Each(func(i int, s *goquery.Selection) {
		a := s.Find("a")
		chapterLink, exists := a.Attr("href")
		if !exists {
			return
		}
		chapterTitle := strings.TrimSpace(a.Find("span.grow > span").First().Text())
		match := chapterNumberRegex.FindStringSubmatch(chapterTitle)
		if len(match) < 2 {
			return
		}
		number, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return
		}
		// Extract the chapter id from the URL, format '/chapters/{id}'
		chapterID := ""
		parts := strings.Split(chapterLink, "/chapters/")
		if len(parts) > 1 {
			chapterID = parts[1]
		}
		if chapterID == "" {
			return
		}
		// Published date from a <time> tag, when present
		var publishedAt time.Time
		if timeTag := s.Find("time"); timeTag.Length() > 0 {
			if datetime, ok := timeTag.Attr("datetime"); ok {
				if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
					publishedAt = parsed
				}
			}
		}
		chapters = append(chapters, models.ChapterResult{
			Identifier:  chapterID,
			Title:       chapterTitle,
			Number:      number,
			PublishedAt: publishedAt, // zero if not found
		})
	})
	if len(chapters) == 0 {
		return nil, errors.New("no chapters found")
	}
	return chapters, nil
}
