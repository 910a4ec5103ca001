package display

import (
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
)

var (
	barLeftColor     = color.New(color.FgYellow, color.Bold)
	barRightColor    = color.New(color.FgBlue)
	barFinishedColor = color.New(color.FgGreen, color.Bold)
)

// Bar is a progress bar with sub-character ticks: each cell of the done
// side steps through LeftProgress before filling, so adjacent progress
// values render distinctly even on narrow terminals.
type Bar struct {
	LeftProgress  []rune
	LeftFill      rune
	RightProgress []rune
	RightFill     rune
}

var (
	// Bars holds the available styles.
	Bars = struct {
		Standard Bar
		Box      Bar
		Braille3 Bar
		Braille4 Bar
	}{
		Standard: Bar{
			LeftProgress:  []rune("╸━"),
			LeftFill:      '━',
			RightProgress: []rune("─╶"),
			RightFill:     '─',
		},
		Box: Bar{
			LeftProgress:  []rune(" ▏▎▍▌▋▊▉"),
			LeftFill:      '█',
			RightProgress: []rune("·"),
			RightFill:     '·',
		},
		Braille3: Bar{
			LeftProgress:  []rune(" ⠄⠆⠇⠧⠷⠿"),
			LeftFill:      '⠿',
			RightProgress: []rune("⠒⠒⠒⠐⠐⠐"),
			RightFill:     '⠒',
		},
		Braille4: Bar{
			LeftProgress:  []rune(" ⡀⡄⡆⡇⣇⣧⣷⣿"),
			LeftFill:      '⣿',
			RightProgress: []rune("⠶⠶⠶⠶⠰⠰⠰⠰"),
			RightFill:     '⠶',
		},
	}
)

func ticks(progress float64, width, numProgress int) (full, sub int) {
	t := int(math.Round(progress * float64(width*numProgress)))
	return t / numProgress, t % numProgress
}

// Render draws the bar at the given completion in [0, 1]. The result is
// always exactly width runes, plus color codes unless color is disabled.
func (b Bar) Render(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress >= 1 {
		return barFinishedColor.Sprint(strings.Repeat(string(b.LeftFill), width))
	}

	full, subL := ticks(progress, width, len(b.LeftProgress))
	left := []rune(strings.Repeat(string(b.LeftFill), full))
	if len(left) < width {
		left = append(left, b.LeftProgress[subL])
	}

	var right []rune
	if len(left) < width {
		_, subR := ticks(progress, width, len(b.RightProgress))
		right = append(right, b.RightProgress[subR])
	}
	for len(left)+len(right) < width {
		right = append(right, b.RightFill)
	}

	return barLeftColor.Sprint(string(left)) + barRightColor.Sprint(string(right))
}

// Spinner cycles through the braille gray-code pattern, one glyph per
// call.
type Spinner struct {
	idx int
}

func (s *Spinner) Next() string {
	g := s.idx ^ (s.idx >> 1)
	s.idx = (s.idx + 1) % 0x100
	return string(rune(0x2800 + g))
}

// ClearLine rewinds the cursor and erases the current terminal line.
func ClearLine(w io.Writer) {
	io.WriteString(w, "\r\x1b[K")
}
