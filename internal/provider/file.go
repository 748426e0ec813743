package provider

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"CycleScan/internal/model"
)

// FileUniverse reads the scan universe from a local text file, one symbol
// per line. A line may optionally carry last price and average volume as
// comma-separated fields: `AAPL,182.5,58000000`. Blank lines and lines
// starting with # are ignored.
type FileUniverse struct {
	Path string
}

func NewFileUniverse(path string) *FileUniverse {
	return &FileUniverse{Path: path}
}

func (f *FileUniverse) FetchUniverse(_ context.Context) ([]model.UniverseEntry, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer file.Close()

	seen := make(map[string]bool)
	var out []model.UniverseEntry

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ",")
		symbol := strings.ToUpper(strings.TrimSpace(fields[0]))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		entry := model.UniverseEntry{Symbol: symbol}
		if len(fields) > 1 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64); err == nil {
				entry.LastPrice = v
			}
		}
		if len(fields) > 2 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err == nil {
				entry.AvgVolume = v
			}
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("universe file %s holds no symbols", f.Path)
	}
	return out, nil
}
