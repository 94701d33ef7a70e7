package api

import (
	"bytes"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nfnt/resize"
)

const coverFetchTimeout = 30 * time.Second

// Covers wider than this are never requested at full size; the UI has no
// use for them and some providers serve multi-megabyte originals.
const maxCoverWidth = 1024

// handleProxyCover fetches a remote cover image on behalf of the UI. Provider
// CDNs often reject cross-origin requests or require a referer, so the browser
// cannot load them directly. An optional "width" parameter downscales the
// image server-side and re-encodes it as JPEG.
func (s *Server) handleProxyCover(w http.ResponseWriter, r *http.Request) {
	coverURL := r.URL.Query().Get("url")
	if coverURL == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing 'url' parameter")
		return
	}

	parsed, err := url.Parse(coverURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		RespondWithError(w, http.StatusBadRequest, "Only http and https URLs are allowed")
		return
	}

	var width uint
	if raw := r.URL.Query().Get("width"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 || parsed > maxCoverWidth {
			RespondWithError(w, http.StatusBadRequest, "Invalid 'width' parameter")
			return
		}
		width = uint(parsed)
	}

	client := &http.Client{Timeout: coverFetchTimeout}
	req, err := http.NewRequestWithContext(r.Context(), "GET", coverURL, nil)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}
	if referer := r.URL.Query().Get("referer"); referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Error fetching cover %s: %v", coverURL, err)
		RespondWithError(w, http.StatusBadGateway, "Failed to fetch cover")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Cover fetch returned status %d for %s", resp.StatusCode, coverURL)
		RespondWithError(w, http.StatusBadGateway, "Cover server returned error")
		return
	}

	if width == 0 {
		// Pass through untouched.
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		io.Copy(w, resp.Body)
		return
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to decode cover image")
		return
	}
	resized := resize.Resize(width, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 75}); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to encode cover image")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(buf.Bytes())
}
