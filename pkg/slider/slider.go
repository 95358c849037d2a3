// Package slider prepares the home page hero carousel.
package slider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/adfharrison1/go-tours/pkg/content"
)

const (
	// DefaultIntervalMs is used when the settings don't set an interval
	DefaultIntervalMs = 6000
	// MinIntervalMs is the shortest time a slide stays on screen
	MinIntervalMs = 2000
)

// Slide is a hero slide with its effective display time
type Slide struct {
	content.Slide
	IntervalMs int `json:"interval_ms"`
}

// Hero is everything the carousel script needs
type Hero struct {
	Slides       []Slide `json:"slides"`
	AutoplayMs   int     `json:"autoplay_ms"`
	PauseOnHover bool    `json:"pause_on_hover"`
	Loop         bool    `json:"loop"`
	Autoplay     bool    `json:"autoplay"`
	// Key changes whenever the slide set or timing changes; the client
	// re-initialises the carousel only when it differs from the last one.
	Key string `json:"key"`
}

// Build filters and orders slides for display. Inactive slides, slides
// without media and videos without a poster are left out. Autoplay and
// looping need at least two slides.
func Build(slides []content.Slide, settings content.Settings) Hero {
	hero := Hero{
		AutoplayMs:   interval(settings.SliderAutoplayMs, DefaultIntervalMs),
		PauseOnHover: settings.SliderPauseOnHover,
		Slides:       []Slide{},
	}

	for _, s := range slides {
		if !s.Active || strings.TrimSpace(s.MediaURL) == "" {
			continue
		}
		if s.IsVideo() && strings.TrimSpace(s.PosterURL) == "" {
			continue
		}
		hero.Slides = append(hero.Slides, Slide{
			Slide:      s,
			IntervalMs: interval(s.DurationMs, hero.AutoplayMs),
		})
	}

	sort.SliceStable(hero.Slides, func(i, j int) bool {
		a, b := hero.Slides[i], hero.Slides[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	})

	hero.Autoplay = len(hero.Slides) > 1
	hero.Loop = hero.Autoplay
	hero.Key = key(hero)
	return hero
}

// interval returns ms, or fallback when ms is unset, never below the floor
func interval(ms, fallback int) int {
	if ms <= 0 {
		ms = fallback
	}
	if ms < MinIntervalMs {
		return MinIntervalMs
	}
	return ms
}

func key(hero Hero) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%t|%t\n", hero.AutoplayMs, hero.PauseOnHover, hero.Autoplay)
	for _, s := range hero.Slides {
		fmt.Fprintf(h, "%s|%s|%d\n", s.ID, s.UpdatedAt, s.IntervalMs)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Len returns the number of slides
func (h Hero) Len() int {
	return len(h.Slides)
}

// Next returns the slide after i, wrapping to the first
func (h Hero) Next(i int) int {
	n := len(h.Slides)
	if n == 0 {
		return 0
	}
	return ((i+1)%n + n) % n
}

// Prev returns the slide before i, wrapping to the last
func (h Hero) Prev(i int) int {
	n := len(h.Slides)
	if n == 0 {
		return 0
	}
	return ((i-1)%n + n) % n
}
