package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/stenoarena/internal/model"
)

const (
	defaultChartHeight = 8
	minChartWidth      = 10
	fallbackTermWidth  = 80
	chartAxisWidth     = 5
	chartAxisSep       = " │ "
	ansiReset          = "\x1b[0m"
)

// ChartOptions controls RenderProgressChart. Zero values pick defaults.
type ChartOptions struct {
	Width  int
	Height int
	Window int
	Color  bool
}

type chartLine struct {
	name   string
	values []float64
	color  string
	dashed bool
}

// RenderProgressChart draws WPM and accuracy moving averages in submission
// order as a braille line chart. Both lines share a 0-100 axis; WPM above
// 100 is clipped to the top row.
func RenderProgressChart(w io.Writer, results []model.StoredResult, opts ChartOptions) error {
	if len(results) < 2 {
		return nil
	}
	ordered := make([]model.StoredResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})
	wpms := make([]float64, len(ordered))
	accs := make([]float64, len(ordered))
	for i, r := range ordered {
		wpms[i] = float64(r.WPM)
		accs[i] = float64(r.Accuracy)
	}
	window := opts.Window
	if window < 1 {
		window = 1
	}
	lines := []chartLine{
		{name: "WPM", values: MovingAverage(wpms, window), color: "\x1b[36m"},
		{name: "Accuracy %", values: MovingAverage(accs, window), color: "\x1b[33m", dashed: true},
	}

	height := opts.Height
	if height <= 0 {
		height = defaultChartHeight
	}
	width := opts.Width
	if width <= 0 {
		width = ChartWidthFor(terminalWidth())
	}
	width = max(width, minChartWidth)

	cv := newCanvas(width, height, len(lines))
	for li, line := range lines {
		cv.plot(li, resample(line.values, width), line.dashed)
	}

	useColor := opts.Color && os.Getenv("NO_COLOR") == ""
	if _, err := fmt.Fprintf(w, "Progress over %d results (moving average of %d)\n", len(ordered), window); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = "100"
		case height / 2:
			label = "50"
		case height - 1:
			label = "0"
		}
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", chartAxisWidth, label, chartAxisSep)
		for x := 0; x < width; x++ {
			mask, owner := cv.cell(x, y)
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				row.WriteString(lines[owner].color)
				row.WriteRune(ch)
				row.WriteString(ansiReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	legend := make([]string, 0, len(lines))
	for _, line := range lines {
		style := "solid"
		if line.dashed {
			style = "dashed"
		}
		label := fmt.Sprintf("%s (%s, last %.0f)", line.name, style, line.values[len(line.values)-1])
		if useColor {
			label = line.color + label + ansiReset
		}
		legend = append(legend, label)
	}
	_, err := fmt.Fprintf(w, "%s  %s\n\n", strings.Repeat(" ", chartAxisWidth), strings.Join(legend, "  "))
	return err
}

// ChartWidthFor returns the plot width that fits a terminal of totalWidth columns.
func ChartWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minChartWidth
	}
	return max(totalWidth-chartAxisWidth-len([]rune(chartAxisSep)), minChartWidth)
}

// ColorOutput reports whether w is a terminal that should receive ANSI colors.
func ColorOutput(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

// canvas holds one braille dot layer per line; each cell is 2x4 dots.
type canvas struct {
	width, height int
	layers        [][][]uint8
}

func newCanvas(width, height, layers int) *canvas {
	cv := &canvas{width: width, height: height}
	for i := 0; i < layers; i++ {
		cells := make([][]uint8, height)
		for y := range cells {
			cells[y] = make([]uint8, width)
		}
		cv.layers = append(cv.layers, cells)
	}
	return cv
}

func (cv *canvas) plot(layer int, values []float64, dashed bool) {
	dots := cv.height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		pos := math.Max(0, math.Min(v, 100)) / 100
		py := int(math.Round((1 - pos) * float64(dots-1)))
		px := x * 2
		if prevX < 0 {
			cv.dot(layer, px, py)
		} else {
			bresenham(prevX, prevY, px, py, func(dx, dy int) {
				if !dashed || dx%6 < 3 {
					cv.dot(layer, dx, dy)
				}
			})
		}
		prevX, prevY = px, py
	}
}

func (cv *canvas) dot(layer, x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= cv.width || cy >= cv.height {
		return
	}
	cv.layers[layer][cy][cx] |= dotBit(x%2, y%4)
}

// cell merges all layers; owner is the first layer with a dot in the cell.
func (cv *canvas) cell(x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, cells := range cv.layers {
		if m := cells[y][x]; m != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= m
		}
	}
	return mask, owner
}

// dotBit maps a dot position inside a cell to its Unicode braille bit.
func dotBit(col, row int) uint8 {
	left := [4]uint8{0x01, 0x02, 0x04, 0x40}
	right := [4]uint8{0x08, 0x10, 0x20, 0x80}
	if col == 0 {
		return left[row]
	}
	return right[row]
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == 0:
		return out
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
		return out
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(n-1) / float64(width-1)
		idx := int(pos)
		if idx >= n-1 {
			out[i] = values[n-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}
