package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/codebook/internal/codebook"
	"github.com/pdiddy/codebook/pkg/types"
)

func sampleCodebook() types.Codebook {
	return codebook.Parse("1 Indisponibilité totale du réseau 1, 27\n7 Facturation 5, 31, abc, 76\n")
}

func TestWriteCodebookFormats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"table", []string{"Code", "Indisponibilité totale du réseau", `5, 31, "abc", 76`, "2 entries, 6 ids"}},
		{"json", []string{`"code": "7"`, `"abc"`, "76"}},
		{"yaml", []string{"code: \"1\"", "- abc", "- 76"}},
		{"csv", []string{"code,definition,ids", `7,Facturation,"5, 31, ""abc"", 76"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCodebook(&buf, sampleCodebook(), tt.format))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestWriteCodebookEmptyAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCodebook(&buf, types.NewCodebook(nil), "table"))
	assert.Equal(t, "No entries found.\n", buf.String())

	assert.Error(t, writeCodebook(&buf, types.NewCodebook(nil), "xml"))
}

func TestReadTextNormalizesLineEndings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 A 1\r\n2 B 2\r3 C 3\n"), 0o644))

	text, err := readText(path)
	require.NoError(t, err)
	assert.Equal(t, "1 A 1\n2 B 2\n3 C 3\n", text)
}
