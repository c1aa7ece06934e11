package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Palette is the pastel slice palette; slice i uses Palette[i%len(Palette)].
var Palette = []string{
	"#FDE68A",
	"#93C5FD",
	"#FCA5A5",
	"#A7F3D0",
	"#C4B5FD",
	"#FDBA74",
	"#86EFAC",
	"#9CA3AF",
	"#F9A8D4",
	"#67E8F9",
}

const (
	darkText  = "#111111"
	lightText = "#FFFFFF"
)

func SliceColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// ContrastOn picks dark or light text for a background given as 3- or
// 6-digit hex, with or without a leading '#'.
func ContrastOn(hexColor string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(hexColor), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return "", fmt.Errorf("invalid hex color %q", hexColor)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid hex color %q: %w", hexColor, err)
	}
	r := float64((v>>16)&0xff) / 255
	g := float64((v>>8)&0xff) / 255
	b := float64(v&0xff) / 255
	lum := 0.2126*math.Pow(r, 2.2) + 0.7152*math.Pow(g, 2.2) + 0.0722*math.Pow(b, 2.2)
	if lum > 0.5 {
		return darkText, nil
	}
	return lightText, nil
}

// Slice describes how a renderer should draw one item.
type Slice struct {
	Index     int     `json:"index"`
	Item      string  `json:"item"`
	StartDeg  float64 `json:"start_deg"`
	EndDeg    float64 `json:"end_deg"`
	Fill      string  `json:"fill"`
	TextColor string  `json:"text_color"`
}

// Slices lays items out clockwise from the top in equal segments.
func Slices(items []string) []Slice {
	if len(items) == 0 {
		return nil
	}
	width := 360 / float64(len(items))
	out := make([]Slice, len(items))
	for i, item := range items {
		fill := SliceColor(i)
		text, _ := ContrastOn(fill)
		out[i] = Slice{
			Index:     i,
			Item:      item,
			StartDeg:  float64(i) * width,
			EndDeg:    float64(i+1) * width,
			Fill:      fill,
			TextColor: text,
		}
	}
	return out
}
