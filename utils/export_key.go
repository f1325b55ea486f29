package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	unsafeKeyChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	repeatedSeps   = regexp.MustCompile(`[_\-.]{2,}`)
)

// ExportKeyGenerator builds date-partitioned object keys for snapshot files:
// <prefix>/<yyyy>/<mm>/<dd>/<short uuid>_<name>.json
type ExportKeyGenerator struct {
	prefix     string
	maxNameLen int
	now        func() time.Time
}

func NewExportKeyGenerator(prefix string) *ExportKeyGenerator {
	return &ExportKeyGenerator{
		prefix:     strings.Trim(prefix, "/"),
		maxNameLen: 50,
		now:        time.Now,
	}
}

func (g *ExportKeyGenerator) Key(name string) string {
	day := g.now().UTC().Format("2006/01/02")
	short := uuid.New().String()[:8]
	return fmt.Sprintf("%s/%s/%s_%s.json", g.prefix, day, short, g.clean(name))
}

// HasPrefix reports whether key was produced under this generator's prefix.
func (g *ExportKeyGenerator) HasPrefix(key string) bool {
	return strings.HasPrefix(key, g.prefix+"/")
}

func (g *ExportKeyGenerator) clean(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	name = repeatedSeps.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_-.")
	if utf8.RuneCountInString(name) > g.maxNameLen {
		name = string([]rune(name)[:g.maxNameLen])
	}
	if name == "" {
		return "tree"
	}
	return strings.ToLower(name)
}
