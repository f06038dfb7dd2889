package visual

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"FlightPatterns/src/config"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot/vg"
)

// Theme 解析后的图表配置
type Theme struct {
	Width   vg.Length
	Height  vg.Length
	DPI     int
	Palette []color.Color
}

// NewTheme 把配置中的尺寸与十六进制颜色转换为绘图参数
func NewTheme(cfg config.Theme) (Theme, error) {
	if cfg.WidthInch <= 0 || cfg.HeightInch <= 0 {
		return Theme{}, fmt.Errorf("theme: invalid size %vx%v inch", cfg.WidthInch, cfg.HeightInch)
	}
	if cfg.DPI <= 0 {
		return Theme{}, fmt.Errorf("theme: invalid dpi %d", cfg.DPI)
	}
	if len(cfg.Palette) == 0 {
		return Theme{}, fmt.Errorf("theme: empty palette")
	}

	t := Theme{
		Width:  vg.Length(cfg.WidthInch) * vg.Inch,
		Height: vg.Length(cfg.HeightInch) * vg.Inch,
		DPI:    cfg.DPI,
	}
	for _, hex := range cfg.Palette {
		c, err := ParseHex(hex)
		if err != nil {
			return Theme{}, err
		}
		t.Palette = append(t.Palette, c)
	}
	return t, nil
}

// Color 按下标循环取色
func (t Theme) Color(i int) color.Color {
	return t.Palette[i%len(t.Palette)]
}

// ParseHex 解析 #rrggbb 或 #rgb
func ParseHex(s string) (color.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return nil, fmt.Errorf("theme: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("theme: invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Title flight_count -> Flight Count
func Title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
