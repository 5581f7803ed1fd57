package gallery

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Namer derives AssetBaseNames of the form "{unixMillis}-{basename}".
//
// The millisecond prefix is monotonic within a Namer: a call landing in the
// same millisecond as the previous one (or after the clock stepped back)
// gets the previous value plus one.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// GenerateFilename strips the extension from originalName and prefixes the
// remaining basename with a millisecond timestamp. Interior characters are
// kept verbatim.
func (n *Namer) GenerateFilename(originalName string) string {
	return strconv.FormatInt(n.next(), 10) + "-" + stripExt(filepath.Base(originalName))
}

func (n *Namer) next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return ms
}

// Ext returns the extension of an uploaded name exactly as supplied.
func Ext(originalName string) string {
	base := filepath.Base(originalName)
	if stripExt(base) == base {
		return ""
	}
	return filepath.Ext(base)
}

func stripExt(name string) string {
	ext := filepath.Ext(name)
	trimmed := strings.TrimSuffix(name, ext)
	if trimmed == "" {
		// dotfiles such as ".hidden" have no extension
		return name
	}
	return trimmed
}
