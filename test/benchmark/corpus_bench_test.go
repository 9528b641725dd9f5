package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/corpus"
)

func rawText(repeats int) string {
	block := "THE SONNETS\r\n\r\n\r\n[Enter KING RICHARD]\r\n" + passage + "<<annotation>>\r\n"
	return strings.Repeat(block, repeats)
}

func BenchmarkNormalize(b *testing.B) {
	for _, repeats := range []int{100, 1000} {
		text := rawText(repeats)
		b.Run(fmt.Sprintf("blocks_%d", repeats), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = corpus.Normalize(text, corpus.DefaultStartMarkers)
			}
		})
	}
}

func BenchmarkChunk(b *testing.B) {
	text := corpusOf(1000)
	sizes := []struct{ size, overlap int }{{500, 100}, {1000, 200}, {4000, 0}}
	for _, s := range sizes {
		b.Run(fmt.Sprintf("size_%d_overlap_%d", s.size, s.overlap), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				seq, err := chunker.Split(text, s.size, s.overlap)
				if err != nil {
					b.Fatal(err)
				}
				n := 0
				for range seq {
					n++
				}
				_ = n
			}
		})
	}
}
