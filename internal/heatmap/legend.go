package heatmap

import (
	"sort"
	"strconv"
	"strings"
)

// Palette is the category color cycle. Presentation picks
// Palette[index % len(Palette)].
var Palette = []string{
	"#4285f4",
	"#ea4335",
	"#fbbc05",
	"#34a853",
	"#aa46bb",
	"#f57c00",
	"#0097a7",
	"#757575",
}

// Color returns the palette color for a category index, or "" for -1.
func Color(index int) string {
	if index < 0 {
		return ""
	}
	return Palette[index%len(Palette)]
}

// IsLightColor reports whether a #rrggbb color is light enough to need dark
// text on top of it.
func IsLightColor(hex string) bool {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return false
	}
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	return (0.299*r+0.587*g+0.114*b)/255 > 0.5
}

// LegendEntry is one category that dominates at least one slot.
type LegendEntry struct {
	Index    int
	Category string
	// Hours sums the minutes of the slots the category dominates.
	Hours float64
}

// Legend lists dominant categories by descending hours, then index.
func (h *Heatmap) Legend() []LegendEntry {
	minutes := make(map[int]float64)
	for _, d := range h.Days {
		for _, c := range d.Hours {
			if c.CategoryIndex >= 0 {
				minutes[c.CategoryIndex] += c.Minutes
			}
		}
	}

	out := make([]LegendEntry, 0, len(minutes))
	for idx, m := range minutes {
		out = append(out, LegendEntry{Index: idx, Category: h.Categories[idx], Hours: m / 60})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Index < out[j].Index
	})
	return out
}
