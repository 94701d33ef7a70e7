package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yuigahama/tsundoku/internal/models"
)

// Adapter exposes a loaded plugin as a models.Provider. The goja VM is
// single-threaded, so every call into the plugin holds the adapter's lock.
type Adapter struct {
	mu      sync.Mutex
	runtime *Runtime
	info    models.ProviderInfo
}

// NewAdapter wraps a runtime and resolves the provider identity from the
// plugin's getInfo export, falling back to the manifest.
func NewAdapter(runtime *Runtime) (*Adapter, error) {
	a := &Adapter{runtime: runtime}

	val, err := runtime.Call(context.Background(), "getInfo")
	if err != nil {
		return nil, err
	}
	raw, _ := val.Export().(map[string]any)
	a.info = models.ProviderInfo{
		ID:   stringField(raw, "id"),
		Name: stringField(raw, "name"),
	}
	if a.info.ID == "" {
		a.info.ID = runtime.Manifest().ID
	}
	if a.info.Name == "" {
		a.info.Name = runtime.Manifest().Name
	}
	return a, nil
}

func (a *Adapter) GetInfo() models.ProviderInfo {
	return a.info
}

func (a *Adapter) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	val, err := a.runtime.Call(ctx, "search", query)
	if err != nil {
		return nil, err
	}
	items, err := exportSlice(val.Export(), "search")
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, models.SearchResult{
			Title:      stringField(item, "title"),
			CoverURL:   stringField(item, "cover_url"),
			Identifier: stringField(item, "identifier"),
		})
	}
	return results, nil
}

func (a *Adapter) GetChapters(ctx context.Context, seriesIdentifier string) ([]models.ChapterResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	val, err := a.runtime.Call(ctx, "getChapters", seriesIdentifier)
	if err != nil {
		return nil, err
	}
	items, err := exportSlice(val.Export(), "getChapters")
	if err != nil {
		return nil, err
	}

	results := make([]models.ChapterResult, 0, len(items))
	for _, item := range items {
		ch := models.ChapterResult{
			Identifier: stringField(item, "identifier"),
			Title:      stringField(item, "title"),
			Number:     floatField(item, "number"),
			Language:   stringField(item, "language"),
		}
		if vol, ok := item["volume"]; ok {
			if f, ok := toFloat(vol); ok {
				ch.Volume = &f
			}
		}
		if raw := stringField(item, "published_at"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				ch.PublishedAt = t
			}
		}
		results = append(results, ch)
	}
	return results, nil
}

func exportSlice(exported any, function string) ([]map[string]any, error) {
	raw, ok := exported.([]any)
	if !ok {
		return nil, fmt.Errorf("plugin %s returned %T, expected an array", function, exported)
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
