package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Common size constants for convenience
const (
	Byte     int64 = 1
	KiloByte int64 = 1024
	MegaByte int64 = 1024 * 1024
	GigaByte int64 = 1024 * 1024 * 1024
	TeraByte int64 = 1024 * 1024 * 1024 * 1024
)

var sizePattern = regexp.MustCompile(`^([\d.]+)\s*([A-Za-z]+)$`)

// ParseDataSize parses human-friendly data sizes like "100MB", "1.5GB" or
// "512KB" and returns the size in bytes. A bare number is taken as bytes.
func ParseDataSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if val, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
		return val, nil
	}

	matches := sizePattern.FindStringSubmatch(sizeStr)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid size format: %s (expected format like '100MB', '1.5GB')", sizeStr)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %s", matches[1])
	}

	multiplier := getMultiplier(strings.ToUpper(matches[2]))
	if multiplier == 0 {
		return 0, fmt.Errorf("unknown unit: %s (supported: B, KB, MB, GB, TB)", matches[2])
	}

	bytes := int64(value * float64(multiplier))
	if bytes < 0 {
		return 0, fmt.Errorf("size overflow or negative value")
	}
	return bytes, nil
}

// ParseDataSizeWithDefault parses a size string and returns the default
// when the string is empty or invalid.
func ParseDataSizeWithDefault(sizeStr string, defaultSize int64) int64 {
	if sizeStr == "" {
		return defaultSize
	}
	size, err := ParseDataSize(sizeStr)
	if err != nil {
		return defaultSize
	}
	return size
}

// FormatDataSize formats bytes into a human-readable display string, e.g.
// "18.48 KB". Used for the size_display field shown on receiving devices.
func FormatDataSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			if unit == "B" {
				return fmt.Sprintf("%d %s", int64(size), unit)
			}
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

func getMultiplier(unit string) int64 {
	switch unit {
	case "B", "BYTE", "BYTES":
		return Byte
	case "KB", "KIB", "K":
		return KiloByte
	case "MB", "MIB", "M":
		return MegaByte
	case "GB", "GIB", "G":
		return GigaByte
	case "TB", "TIB", "T":
		return TeraByte
	default:
		return 0
	}
}
