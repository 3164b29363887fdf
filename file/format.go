package file

import "strconv"

var byteUnits = []string{"", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with one decimal in the largest unit that
// keeps the value below 1024, e.g. "512", "1.5KB", "3MB".
func FormatBytes(n int64) string {
	value := float64(n)
	unit := 0
	for unit < len(byteUnits)-1 && value >= 1024 {
		value /= 1024
		unit++
	}
	return strconv.FormatFloat(float64(int64(value*10+0.5))/10, 'f', -1, 64) + byteUnits[unit]
}
