// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codebook

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/codebook/pkg/types"
)

func n(v int64) types.ID  { return types.NumericID(v) }
func r(s string) types.ID { return types.RawID(s) }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []types.Entry
	}{
		{
			name: "space separated ids",
			text: "1 Indisponibilité totale du réseau 1, 27, 37, 296",
			want: []types.Entry{
				{Code: "1", Definition: "Indisponibilité totale du réseau", IDs: []types.ID{n(1), n(27), n(37), n(296)}},
			},
		},
		{
			name: "tab separated columns",
			text: "2\tRéseau instable / coupures fréquentes\t6, 10, 30, 59",
			want: []types.Entry{
				{Code: "2", Definition: "Réseau instable / coupures fréquentes", IDs: []types.ID{n(6), n(10), n(30), n(59)}},
			},
		},
		{
			name: "no trailing ids",
			text: "42 A definition with no trailing numbers",
			want: []types.Entry{
				{Code: "42", Definition: "A definition with no trailing numbers", IDs: []types.ID{}},
			},
		},
		{
			name: "non numeric token kept as raw id",
			text: "7 Facturation 5, 31, abc, 76",
			want: []types.Entry{
				{Code: "7", Definition: "Facturation", IDs: []types.ID{n(5), n(31), r("abc"), n(76)}},
			},
		},
		{
			name: "duplicate codes are not merged",
			text: "3 Def A 1,2\n3 Def B 3,4",
			want: []types.Entry{
				{Code: "3", Definition: "Def A", IDs: []types.ID{n(1), n(2)}},
				{Code: "3", Definition: "Def B", IDs: []types.ID{n(3), n(4)}},
			},
		},
		{
			name: "blank lines and noise are skipped",
			text: "\n   \nCodebook for Q1\n1 Mauvaise couverture 56, 138\n\n",
			want: []types.Entry{
				{Code: "1", Definition: "Mauvaise couverture", IDs: []types.ID{n(56), n(138)}},
			},
		},
		{
			name: "leading zeros in code survive",
			text: "007 Secret agent 7",
			want: []types.Entry{
				{Code: "007", Definition: "Secret agent", IDs: []types.ID{n(7)}},
			},
		},
		{
			name: "separator after code",
			text: "4 - Service client insatisfaisant: 15; 44; 89",
			want: []types.Entry{
				{Code: "4", Definition: "Service client insatisfaisant", IDs: []types.ID{n(15), n(44), n(89)}},
			},
		},
		{
			name: "non breaking space and full width comma",
			text: "5\u00a0Lenteur 12\uff0c 45",
			want: []types.Entry{
				{Code: "5", Definition: "Lenteur", IDs: []types.ID{n(12), n(45)}},
			},
		},
		{
			name: "crlf line endings",
			text: "1 Alpha 1, 2\r\n2 Beta 3\r\n",
			want: []types.Entry{
				{Code: "1", Definition: "Alpha", IDs: []types.ID{n(1), n(2)}},
				{Code: "2", Definition: "Beta", IDs: []types.ID{n(3)}},
			},
		},
		{
			name: "code alone on a line",
			text: "12",
			want: []types.Entry{
				{Code: "12", Definition: "", IDs: []types.ID{}},
			},
		},
		{
			name: "strict pass handles code glued to text",
			text: "12abc Foo 1, 2",
			want: []types.Entry{
				{Code: "12", Definition: "abc Foo", IDs: []types.ID{n(1), n(2)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, tt.want, got.Entries())
		})
	}
}

func TestParseEmptyResults(t *testing.T) {
	for _, text := range []string{
		"",
		"\n\n\n",
		"no digits anywhere here",
		"abc 12 def",
		"\x00\xff\xfe garbage \x01",
	} {
		t.Run(text, func(t *testing.T) {
			got := Parse(text)
			assert.True(t, got.IsEmpty(), "entries: %v", got.Entries())
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	text := "1\tA\t1, 2\n2 B 3, x, 4\n3 C\n"
	assert.Equal(t, Parse(text), Parse(text))
}

func TestParseConcurrent(t *testing.T) {
	text := "1 Alpha 1, 2, 3\n2 Beta 4, 5\n"
	want := Parse(text)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Parse(text))
		}()
	}
	wg.Wait()
}

func TestParseLongSample(t *testing.T) {
	text := strings.Join([]string{
		"1\tIndisponibilité totale du réseau\t1, 27, 37, 296, 306, 384, 414",
		"2\tRéseau instable / coupures fréquentes\t6, 10, 30, 59, 64",
		"3\tMauvaise couverture / manque d’antennes\t56, 138, 153",
		"4\tMauvaise qualité de communication (bruit, fluidité)\t16, 60, 73",
		"10\tAutres plaintes / remarques diverses\t3, 9, 28",
	}, "\n")

	got := Parse(text)
	require.Equal(t, 5, got.Len())
	assert.Equal(t, 21, got.IDCount())
	assert.Equal(t, "Mauvaise qualité de communication (bruit, fluidité)", got.At(3).Definition)
	assert.Equal(t, "10", got.At(4).Code)
	assert.Equal(t, []types.ID{n(3), n(9), n(28)}, got.At(4).IDs)
}

func TestParserRecoversFromPanic(t *testing.T) {
	saved := passes
	t.Cleanup(func() { passes = saved })

	calls := 0
	passes = []pass{
		{name: "boom", parse: func(string) ([]types.Entry, bool) {
			calls++
			panic("index out of range")
		}},
		{name: "strict", parse: strictPass},
	}

	var buf bytes.Buffer
	p := NewParser(slog.New(slog.NewTextHandler(&buf, nil)))
	got := p.Parse("1 Alpha 1, 2")

	assert.Equal(t, 1, calls)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Alpha", got.At(0).Definition)
	assert.Contains(t, buf.String(), "codebook pass aborted")
	assert.Contains(t, buf.String(), "pass=boom")
}

func TestParserFallsBackToEmpty(t *testing.T) {
	saved := passes
	t.Cleanup(func() { passes = saved })

	passes = []pass{
		{name: "never", parse: func(string) ([]types.Entry, bool) { return nil, false }},
	}
	assert.True(t, Parse("1 Alpha 1").IsEmpty())
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"",
		"1 Indisponibilité totale du réseau 1, 27, 37, 296",
		"2\tRéseau\t6, 10",
		"7 Facturation 5, 31, abc, 76",
		"12abc | => : ; - 9",
		",,;; 1 ,\t\t",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, text string) {
		got := Parse(text)
		for _, e := range got.Entries() {
			if e.Code == "" {
				t.Fatalf("empty code in %q", text)
			}
			for _, id := range e.IDs {
				if s := id.String(); s == "" || strings.ContainsAny(s, ",;") {
					t.Fatalf("bad id %q in %q", s, text)
				}
			}
		}
	})
}
