// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

// heavyRSS is where the heap prefix turns red.
const heavyRSS = 5 << 30

// RSS returns the resident set size of this process in bytes, or 0 when it
// cannot be read.
func RSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}

// FormatRSS renders a byte count the way bundle and heap lines show it.
func FormatRSS(rss uint64) string {
	return humanize.Bytes(rss)
}
