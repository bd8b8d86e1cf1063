package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Ranked retrieval evaluates a structured query against an inverted index.
        Proximity operators such as NEAR and WINDOW merge position lists, and
        score operators turn the resulting frequencies into document scores
        under the selected retrieval model. Documents are returned by score with
        ties broken by their external identifiers.`,
	"long": strings.Repeat(`Information retrieval systems combine tokenization, stemming,
        and stop word removal to normalize text into index terms. The inverted index
        maps each term to the documents containing it, along with positional
        information for proximity queries. BM25 considers term frequency, document
        length normalization and inverse document frequency, while Indri smooths
        the term probability with the collection model. `, 20),
}

func BenchmarkAnalyze(b *testing.B) {
	analyzers := map[string]tokenizer.Analyzer{
		"english":     tokenizer.English{},
		"passthrough": tokenizer.Passthrough{},
	}
	for aname, a := range analyzers {
		for name, text := range sampleTexts {
			b.Run(aname+"/"+name, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					_ = a.Analyze(text)
				}
			})
		}
	}
}

func BenchmarkAnalyzeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		var a tokenizer.English
		for pb.Next() {
			_ = a.Analyze(text)
		}
	})
}

func BenchmarkStemming(b *testing.B) {
	words := []string{
		"running", "retrieval", "searching", "indexing",
		"tokenization", "normalization", "efficiently",
		"processing", "proximity", "smoothing",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_ = tokenizer.Tokenize(w)
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	baseWord := "ranked retrieval proximity window scoring "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}
