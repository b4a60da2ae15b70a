// Package charts renders the vote breakdowns of an election as images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"election_dashboard/pkg/dashboard"
)

// Error variables for chart rendering
var (
	ErrEmptyChart    = errors.New("nothing to chart")
	ErrUnknownKind   = errors.New("unknown chart kind")
	ErrUnknownFormat = errors.New("unknown chart format")
)

// Kind selects which breakdown is charted
type Kind string

const (
	KindCandidates Kind = "candidates"
	KindNuances    Kind = "nuances"
	KindSexes      Kind = "sexes"
)

// Format is the output image format
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

const (
	minWidth   = 640
	height     = 480
	barWidth   = 48
	barSpacing = 24
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

// ParseKind validates a chart kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCandidates, KindNuances, KindSexes:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ParseFormat validates an image format. The empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatPNG, nil
	case FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

type bar struct {
	label   string
	votes   float64
	percent *float64
}

// Candidates renders the candidate ranking as a bar chart
func Candidates(w io.Writer, b dashboard.CandidateBreakdown, f Format) error {
	if !b.Available || len(b.Candidates) == 0 || b.TotalVotes == 0 {
		return fmt.Errorf("%w: no candidate votes for %s", ErrEmptyChart, b.ID)
	}
	bars := make([]bar, len(b.Candidates))
	for i, c := range b.Candidates {
		bars[i] = bar{label: c.Name, votes: c.Votes, percent: c.Percent}
	}
	return renderBars(w, title("Voix par candidat", b.Label, b.TotalVotes), bars, f)
}

// Nuances renders the votes per nuance as a bar chart
func Nuances(w io.Writer, b dashboard.GroupBreakdown, f Format) error {
	if err := checkGroups(b); err != nil {
		return err
	}
	return renderBars(w, title("Voix par nuance", b.Label, b.TotalVotes), groupBars(b), f)
}

// Sexes renders the votes per candidate sex as a pie chart
func Sexes(w io.Writer, b dashboard.GroupBreakdown, f Format) error {
	if err := checkGroups(b); err != nil {
		return err
	}

	values := make([]chart.Value, 0, len(b.Groups))
	for i, g := range b.Groups {
		if g.Votes <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: barLabel(bar{label: g.Key, votes: g.Votes, percent: g.Percent}),
			Value: g.Votes,
			Style: chart.Style{FillColor: palette[i%len(palette)]},
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: no votes for %s", ErrEmptyChart, b.ID)
	}

	pie := chart.PieChart{
		Title:  title("Voix par sexe", b.Label, b.TotalVotes),
		Width:  height,
		Height: height,
		Values: values,
	}
	return pie.Render(f.provider(), w)
}

func checkGroups(b dashboard.GroupBreakdown) error {
	if !b.Available || len(b.Groups) == 0 || b.TotalVotes == 0 {
		return fmt.Errorf("%w: no %s breakdown for %s", ErrEmptyChart, b.Field, b.ID)
	}
	return nil
}

func groupBars(b dashboard.GroupBreakdown) []bar {
	bars := make([]bar, len(b.Groups))
	for i, g := range b.Groups {
		bars[i] = bar{label: g.Key, votes: g.Votes, percent: g.Percent}
	}
	return bars
}

func renderBars(w io.Writer, chartTitle string, bars []bar, f Format) error {
	values := make([]chart.Value, len(bars))
	top := 0.0
	for i, b := range bars {
		values[i] = chart.Value{
			Label: barLabel(b),
			Value: b.votes,
			Style: chart.Style{FillColor: palette[i%len(palette)], StrokeColor: palette[i%len(palette)]},
		}
		top = math.Max(top, b.votes)
	}

	bc := chart.BarChart{
		Title:      chartTitle,
		Width:      max(minWidth, len(bars)*(barWidth+barSpacing)+2*barSpacing),
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: values,
	}
	return bc.Render(f.provider(), w)
}

func barLabel(b bar) string {
	if b.percent == nil {
		return b.label
	}
	return fmt.Sprintf("%s (%.2f%%)", b.label, *b.percent)
}

func title(what, label string, total float64) string {
	return fmt.Sprintf("%s - %s (%s voix)", what, label, humanize.Comma(int64(total)))
}
