package sources

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conclave-ai/conclave/pkg/models"
)

func genSourceList() gopter.Gen {
	keyGen := gen.OneConstOf("https://a.example.com", "https://b.example.org", "doc-1", "doc-2", "Title A", "Title B", "")
	return gen.SliceOf(gen.IntRange(0, 2).FlatMap(func(v any) gopter.Gen {
		kind := v.(int)
		return keyGen.Map(func(key string) models.NormalizedSource {
			switch kind {
			case 0:
				return models.NormalizedSource{URL: key}
			case 1:
				return models.NormalizedSource{DocumentID: key}
			default:
				return models.NormalizedSource{Title: key}
			}
		})
	}, reflect.TypeOf(models.NormalizedSource{})))
}

func TestDedupeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("dedupe is idempotent", prop.ForAll(
		func(srcs []models.NormalizedSource) bool {
			once := Dedupe(srcs)
			twice := Dedupe(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		genSourceList(),
	))

	properties.Property("merging a subset back in is absorbed", prop.ForAll(
		func(srcs []models.NormalizedSource) bool {
			combined := Dedupe(srcs)
			remerged := MergeDedupe(combined, srcs)
			if len(combined) != len(remerged) {
				return false
			}
			for i := range combined {
				if combined[i] != remerged[i] {
					return false
				}
			}
			return true
		},
		genSourceList(),
	))

	properties.Property("dedupe keeps every distinct key", prop.ForAll(
		func(srcs []models.NormalizedSource) bool {
			keys := make(map[string]bool)
			for _, s := range srcs {
				if k := s.DedupeKey(); k != "" {
					keys[k] = true
				}
			}
			return len(Dedupe(srcs)) == len(keys)
		},
		genSourceList(),
	))

	properties.TestingRun(t)
}
