package archivefacade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]string{
		"game.tar":    "tar",
		"game.tar.gz": "tar",
		"game.tar.xz": "tar",
		"game.zip":    "zip",
		"game.7z":     "7z",
		"game.bin":    "auto",
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectFormat(path), path)
	}
}
