package util

import "math"

// volumeSpan is the spacing between volumes in the order key space. Chapter
// numbers within a volume are assumed to stay below this value.
const volumeSpan = 1000

// ChapterOrderKey derives a sortable key from a chapter's volume and number.
// Chapters without a volume sort purely by number, which also makes the key
// directly comparable across providers that do not report volumes.
func ChapterOrderKey(volume *float64, number float64) float64 {
	if volume == nil || *volume < 0 {
		return number
	}
	return *volume*volumeSpan + number
}

// NumberComponent strips the volume contribution from an order key, leaving
// only the chapter number. Migration matches chapters across providers by
// number alone, since volume numbering rarely agrees between sites.
func NumberComponent(key float64) float64 {
	if key < volumeSpan {
		return key
	}
	return math.Mod(key, volumeSpan)
}

// SameChapterNumber reports whether two chapter numbers refer to the same
// chapter, tolerating float representation noise from parsed strings.
func SameChapterNumber(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
