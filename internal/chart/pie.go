// Package chart renders the expense breakdown as a standalone SVG pie chart.
//
// Slices start at the top of the circle and run counter-clockwise in
// category order, each labelled with its name outside the pie and its share
// inside it.
package chart

import (
	"bufio"
	"errors"
	"fmt"
	"html"
	"io"
	"math"

	"finance/internal/core"
)

// DefaultTitle is used when NewPie is given an empty title.
const DefaultTitle = "Expenses by Category"

const (
	width       = 800
	height      = 480
	centerX     = 460.0
	centerY     = 255.0
	radius      = 170.0
	labelRadius = radius * 1.1
	pctRadius   = radius * 0.6
	startAngle  = 90.0
)

// Palette is cycled through when coloring slices.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var ErrNoData = errors.New("chart: no data to plot")

// Slice is one wedge of the pie. Angles are in degrees, counter-clockwise
// from the positive x axis.
type Slice struct {
	Label      string
	Amount     core.Money
	Percent    string
	Color      string
	StartAngle float64
	EndAngle   float64
}

type Pie struct {
	Title    string
	Currency string
	slices   []Slice
}

// NewPie lays out one slice per row. Rows with a non-positive amount are
// skipped.
func NewPie(title string, rows []core.CategoryAmount) (*Pie, error) {
	if title == "" {
		title = DefaultTitle
	}
	var total int64
	for _, r := range rows {
		if r.Amount.Cents > 0 {
			total += r.Amount.Cents
		}
	}
	if total == 0 {
		return nil, ErrNoData
	}

	p := &Pie{Title: title, Currency: core.DefaultCurrencySymbol}
	angle := startAngle
	for _, r := range rows {
		if r.Amount.Cents <= 0 {
			continue
		}
		sweep := 360 * float64(r.Amount.Cents) / float64(total)
		p.slices = append(p.slices, Slice{
			Label:      r.Name,
			Amount:     r.Amount,
			Percent:    r.Percent.StringFixed(1) + "%",
			Color:      Palette[len(p.slices)%len(Palette)],
			StartAngle: angle,
			EndAngle:   angle + sweep,
		})
		angle += sweep
	}
	return p, nil
}

// Slices returns the computed wedges in drawing order.
func (p *Pie) Slices() []Slice {
	return append([]Slice(nil), p.slices...)
}

// SVG writes the chart as a standalone SVG document.
func (p *Pie) SVG(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img" aria-label="%s">`+"\n",
		width, height, width, height, html.EscapeString(p.Title))
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	fmt.Fprintf(bw, `<text x="%d" y="32" text-anchor="middle" font-family="sans-serif" font-size="18">%s</text>`+"\n",
		width/2, html.EscapeString(p.Title))

	fmt.Fprintf(bw, `<g stroke="#ffffff" stroke-width="1">`+"\n")
	for _, s := range p.slices {
		if len(p.slices) == 1 {
			fmt.Fprintf(bw, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"><title>%s</title></circle>`+"\n",
				centerX, centerY, radius, s.Color, html.EscapeString(s.Label))
			continue
		}
		x0, y0 := point(radius, s.StartAngle)
		x1, y1 := point(radius, s.EndAngle)
		large := 0
		if s.EndAngle-s.StartAngle > 180 {
			large = 1
		}
		fmt.Fprintf(bw, `<path d="M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 0 %.2f %.2f Z" fill="%s"><title>%s</title></path>`+"\n",
			centerX, centerY, x0, y0, radius, radius, large, x1, y1, s.Color, html.EscapeString(s.Label))
	}
	fmt.Fprintf(bw, "</g>\n")

	for _, s := range p.slices {
		mid := (s.StartAngle + s.EndAngle) / 2
		lx, ly := point(labelRadius, mid)
		anchor := "start"
		if math.Cos(mid*math.Pi/180) < 0 {
			anchor = "end"
		}
		fmt.Fprintf(bw, `<text x="%.2f" y="%.2f" text-anchor="%s" dominant-baseline="middle" font-family="sans-serif" font-size="13">%s</text>`+"\n",
			lx, ly, anchor, html.EscapeString(s.Label))

		px, py := point(pctRadius, mid)
		fmt.Fprintf(bw, `<text x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="12">%s</text>`+"\n",
			px, py, s.Percent)
	}

	fmt.Fprintf(bw, `<g font-family="sans-serif" font-size="12">`+"\n")
	for i, s := range p.slices {
		y := 70 + i*20
		fmt.Fprintf(bw, `<rect x="20" y="%d" width="12" height="12" fill="%s"/>`+"\n", y, s.Color)
		fmt.Fprintf(bw, `<text x="38" y="%d">%s %s</text>`+"\n",
			y+10, html.EscapeString(s.Label), html.EscapeString(core.FormatAmount(p.Currency, s.Amount.Cents)))
	}
	fmt.Fprintf(bw, "</g>\n</svg>\n")

	return bw.Flush()
}

// point maps a polar coordinate to SVG space, where y grows downwards.
func point(r, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return centerX + r*math.Cos(rad), centerY - r*math.Sin(rad)
}
