package ui

const (
	defaultWidth  = 80
	defaultHeight = 24
	footerHeight  = 2
)

type layout struct {
	width      int
	height     int
	bodyTop    int
	bodyHeight int
	barX       int
}

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}
	return w, h
}

func (m Model) layout() layout {
	w, h := m.size()

	header := 0
	if !m.hideHeader {
		header = m.headerHeight(w, h)
	}

	return layout{
		width:      w,
		height:     h,
		bodyTop:    header,
		bodyHeight: max(1, h-header-footerHeight),
		barX:       w - 2,
	}
}

// onBar accepts clicks on the bar column or right next to it.
func (l layout) onBar(x, y int) bool {
	return x >= l.barX-1 && x <= l.barX+1 && y >= l.bodyTop && y < l.bodyTop+l.bodyHeight
}

// rowAt maps a screen line in the lyric list to a row index, or -1.
func (l layout) rowAt(y, top, rows int) int {
	if y < l.bodyTop || y >= l.bodyTop+l.bodyHeight {
		return -1
	}
	row := top + y - l.bodyTop
	if row < 0 || row >= rows {
		return -1
	}
	return row
}

// barValue is the inverted control value for line of a bar that is height
// lines tall. The top line is the start of the track (value total), the
// bottom line its end (value 0).
func barValue(line, height int, total int64) int64 {
	if height <= 1 || total <= 0 {
		return total
	}
	line = max(0, min(height-1, line))
	elapsed := total * int64(line) / int64(height-1)
	return total - elapsed
}

// barLine is the line of the bar showing value, rounded to the nearest line.
func barLine(value, total int64, height int) int {
	if height <= 1 || total <= 0 {
		return 0
	}
	elapsed := total - max(0, min(total, value))
	return int((elapsed*int64(height-1) + total/2) / total)
}

// scrollTop is the first row shown so that focus sits in the middle of a
// list height lines tall, without scrolling past either end.
func scrollTop(focus, rows, height int) int {
	if rows <= height {
		return 0
	}
	return max(0, min(rows-height, focus-height/2))
}
