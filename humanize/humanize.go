package humanize

import "fmt"

func BPS(bps uint64) string {
	switch {
	case bps > (1024 * 1024):
		return fmt.Sprintf("%.f MiB/s", float64(bps)/1024/1024)
	case bps > 1024:
		return fmt.Sprintf("%.f KiB/s", float64(bps)/1024)
	default:
		return fmt.Sprintf("%d B/s", bps)
	}
}

func Bytes(bytes uint64) string {
	switch {
	case bytes > (1024 * 1024):
		return fmt.Sprintf("%.f MiB", float64(bytes)/1024/1024)
	case bytes > 1024:
		return fmt.Sprintf("%.f KiB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Blocks renders a block count together with the bytes it covers, e.g.
// "8192 blocks (32 MiB)".
func Blocks(blocks, blockSize int) string {
	return fmt.Sprintf("%d blocks (%s)", blocks, Bytes(uint64(blocks)*uint64(blockSize)))
}

// Ratio renders used out of total as a percentage, e.g. "12.5%".
func Ratio(used, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(used)/float64(total)*100)
}
