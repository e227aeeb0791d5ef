package monitor

import (
	"bufio"
	"bytes"
	"os"
	"strconv"
	"strings"
)

// hostMemory reads total and available host memory in bytes from
// /proc/meminfo. Both are zero on hosts without it.
func hostMemory() (total, available uint64) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	return parseMeminfo(data)
}

// parseMeminfo extracts MemTotal and MemAvailable from meminfo content.
// Values are listed in kB.
func parseMeminfo(data []byte) (total, available uint64) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = meminfoKB(line) * 1024
		case strings.HasPrefix(line, "MemAvailable:"):
			available = meminfoKB(line) * 1024
		}
		if total > 0 && available > 0 {
			break
		}
	}
	return total, available
}

func meminfoKB(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb
}
