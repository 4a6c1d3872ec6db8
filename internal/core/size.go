// AngelaMos | 2026
// size.go

package core

import (
	"math"
	"strconv"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count in base-1024 units with at most two
// decimals, e.g. "1.5 KB", "200 MB", "0 Bytes".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := 0
	scale := float64(1)
	for i < len(sizeUnits)-1 && float64(bytes) >= scale*1024 {
		scale *= 1024
		i++
	}

	value := math.Round(float64(bytes)/scale*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}
