package item

import (
	"strconv"
	"unicode/utf16"
)

// FeedIDPrefix marks feed-origin item IDs so they can never collide with a
// catalog item that happens to hash to the same value.
const FeedIDPrefix = "rss-"

// DeriveID computes the persisted document key for a (source, title) pair:
// a 32-bit wrapping polynomial hash over UTF-16 code units, rendered as the
// absolute value in base 36. Identity is a function of source and title only,
// never of content, so re-crawling a changed listing updates the same
// document instead of creating a duplicate.
//
// The hash is deliberately non-cryptographic. At most a few dozen items per
// source exist per run, and a within-source collision only causes one listing
// to overwrite another; cross-source collisions are prevented by hashing the
// source prefix.
func DeriveID(source, title string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(source + ":" + title)) {
		h = h*31 + int32(u)
	}
	if h < 0 {
		// int32 min has no positive counterpart; its magnitude still fits int64.
		return strconv.FormatInt(-int64(h), 36)
	}
	return strconv.FormatInt(int64(h), 36)
}

// DeriveFeedID is DeriveID with the feed-origin prefix.
func DeriveFeedID(source, title string) string {
	return FeedIDPrefix + DeriveID(source, title)
}
