package internal

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// SiteSlugMarker marks archives that carry per-site classification tags.
const SiteSlugMarker = "site-slug"

const slugTimeLayout = "20060102150405"

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters into one hyphen. Leading and trailing hyphens are dropped.
func Slugify(s string) string {
	return strings.Trim(nonSlugRun.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// MonthTag is the monthly marker tag, e.g. "snapshot-2025-08".
func MonthTag(t time.Time) string {
	return "snapshot-" + t.UTC().Format("2006-01")
}

func ClientTag(client string) string {
	return "client:" + client
}

func SiteTag(name string) string {
	return "site:" + name
}

// SynthesizeTags derives the tag set for a capture of site at captureTime.
// Order is stable: auto tags first, then user tags; duplicates are dropped.
func SynthesizeTags(site Site, captureTime time.Time) []string {
	auto := []string{
		SiteSlugMarker,
		SiteTag(site.Name),
		site.ResolvedSlug() + "-" + captureTime.UTC().Format(slugTimeLayout),
	}
	if site.Client != "" {
		auto = append(auto, ClientTag(site.Client))
	}
	auto = append(auto, MonthTag(captureTime))

	return mergeTags(auto, site.Tags)
}

func mergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// hostSlug is the slug fallback for sites configured without a usable name.
func hostSlug(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Slugify(raw)
	}
	return Slugify(u.Host)
}
