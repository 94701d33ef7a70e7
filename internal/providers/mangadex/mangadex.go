package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

// MangaDexProvider implements the Provider interface for MangaDex.
type MangaDexProvider struct {
	client          *http.Client
	apiBaseURL      string
	coverArtBaseURL string
}

// New creates a new instance of the MangaDexProvider.
func New() *MangaDexProvider {
	return &MangaDexProvider{
		client:          &http.Client{Timeout: 20 * time.Second},
		apiBaseURL:      "https://api.mangadex.org",
		coverArtBaseURL: "https://uploads.mangadex.org",
	}
}

// GetInfo returns static information about this provider.
func (p *MangaDexProvider) GetInfo() models.ProviderInfo {
	return models.ProviderInfo{
		ID:   "mangadex",
		Name: "MangaDex",
	}
}

// Search sends a request to the MangaDex API to search for manga.
func (p *MangaDexProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/manga", p.apiBaseURL), nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Add("title", query)
	q.Add("limit", "25")
	q.Add("includes[]", "cover_art")
	req.URL.RawQuery = q.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResponse MangaListResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, err
	}

	var results []models.SearchResult
	for _, mangaData := range apiResponse.Data {
		title := mangaData.Attributes.Title.Get("en") // Default to English title
		if title == "" {
			// Fallback to first available title if English is not present
			for _, t := range mangaData.Attributes.Title {
				title = t
				break
			}
		}

		coverFileName := ""
		for _, rel := range mangaData.Relationships {
			if rel.Type == "cover_art" {
				coverFileName = rel.Attributes.FileName
				break
			}
		}

		coverURL := ""
		if coverFileName != "" {
			coverURL = fmt.Sprintf("%s/covers/%s/%s.256.jpg", p.coverArtBaseURL, mangaData.ID, coverFileName)
		}

		results = append(results, models.SearchResult{
			Title:      title,
			CoverURL:   coverURL,
			Identifier: mangaData.ID,
		})
	}

	return results, nil
}

// GetChapters fetches the chapter list for a given series from MangaDex,
// most recent first.
func (p *MangaDexProvider) GetChapters(ctx context.Context, seriesIdentifier string) ([]models.ChapterResult, error) {
	var allChapters []models.ChapterResult
	offset := 0
	limit := 500

	for {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/manga/%s/feed", p.apiBaseURL, seriesIdentifier), nil)
		if err != nil {
			return nil, err
		}

		q := req.URL.Query()
		q.Add("limit", strconv.Itoa(limit))
		q.Add("offset", strconv.Itoa(offset))
		q.Add("order[volume]", "desc")
		q.Add("order[chapter]", "desc")
		req.URL.RawQuery = q.Encode()

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}

		var apiResponse ChapterFeedResponse
		err = json.NewDecoder(resp.Body).Decode(&apiResponse)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		for _, chapterData := range apiResponse.Data {
			number, err := strconv.ParseFloat(chapterData.Attributes.Chapter, 64)
			if err != nil {
				// Oneshots and extras have no usable chapter number.
				continue
			}
			var volume *float64
			if v, err := strconv.ParseFloat(chapterData.Attributes.Volume, 64); err == nil {
				volume = &v
			}
			allChapters = append(allChapters, models.ChapterResult{
				Identifier:  chapterData.ID,
				Title:       chapterData.Attributes.Title,
				Number:      number,
				Volume:      volume,
				Language:    chapterData.Attributes.TranslatedLanguage,
				PublishedAt: chapterData.Attributes.PublishAt,
			})
		}

		if len(apiResponse.Data) < limit {
			break // No more pages
		}
		offset += limit
	}

	return allChapters, nil
}
