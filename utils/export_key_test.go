package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedKeys(prefix string) *ExportKeyGenerator {
	g := NewExportKeyGenerator(prefix)
	g.now = func() time.Time { return time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC) }
	return g
}

func TestKeyLayout(t *testing.T) {
	g := fixedKeys("/exports/")
	key := g.Key("Go Concurrency Q&A")

	assert.Regexp(t, regexp.MustCompile(`^exports/2024/03/09/[0-9a-f-]{8}_go_concurrency_q_a\.json$`), key)
	assert.True(t, g.HasPrefix(key))
	assert.False(t, g.HasPrefix("backups/2024/03/09/x.json"))
}

func TestKeyNameCleaning(t *testing.T) {
	g := fixedKeys("exports")
	assert.Equal(t, "tree", g.clean("   "))
	assert.Equal(t, "tree", g.clean("???"))
	assert.Equal(t, "a_b", g.clean("a // b"))
	assert.Equal(t, "星际争霸", g.clean("星际争霸"))

	long := g.clean(strings.Repeat("界", 80))
	assert.Equal(t, 50, len([]rune(long)))
}

func TestKeysAreUnique(t *testing.T) {
	g := fixedKeys("exports")
	assert.NotEqual(t, g.Key("same"), g.Key("same"))
}
