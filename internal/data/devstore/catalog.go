package devstore

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const photosPerSearch = 6

// nutritionCatalog stands in for the upstream nutrition database. Values are per serving.
var nutritionCatalog = map[string]model.NutritionItem{
	"apple":          {Calories: 95, ProteinG: 0.5, CarbsG: 25, FatG: 0.3},
	"avocado toast":  {Calories: 290, ProteinG: 7, CarbsG: 30, FatG: 17},
	"banana":         {Calories: 105, ProteinG: 1.3, CarbsG: 27, FatG: 0.4},
	"black coffee":   {Calories: 2, ProteinG: 0.3, CarbsG: 0, FatG: 0},
	"brown rice":     {Calories: 216, ProteinG: 5, CarbsG: 45, FatG: 1.8},
	"chicken breast": {Calories: 284, ProteinG: 53, CarbsG: 0, FatG: 6.2},
	"egg":            {Calories: 78, ProteinG: 6.3, CarbsG: 0.6, FatG: 5.3},
	"greek yogurt":   {Calories: 100, ProteinG: 17, CarbsG: 6, FatG: 0.7},
	"oatmeal":        {Calories: 300, ProteinG: 10, CarbsG: 54, FatG: 5},
	"peanut butter":  {Calories: 188, ProteinG: 8, CarbsG: 6, FatG: 16},
	"salmon":         {Calories: 412, ProteinG: 40, CarbsG: 0, FatG: 27},
	"spinach salad":  {Calories: 45, ProteinG: 3, CarbsG: 6, FatG: 1},
}

var photographers = []struct {
	name   string
	handle string
}{
	{"Anna Pelzer", "annapelzer"},
	{"Brooke Lark", "brookelark"},
	{"Eiliv Aceron", "shootdelicious"},
	{"Joseph Gonzalez", "miracletwentyone"},
	{"Lily Banse", "lvnatikk"},
	{"Ella Olsson", "ellaolsson"},
}

var photoNamespace = uuid.MustParse("6f1c1d4e-9c1b-4f4e-8f0e-5b7c2d9a3e10")

var titleCaser = cases.Title(language.English)

// LookupNutrition finds a catalogue entry by exact name, then by substring
func LookupNutrition(query string) (model.NutritionItem, bool) {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if q == "" {
		return model.NutritionItem{}, false
	}

	item, ok := nutritionCatalog[q]
	if !ok {
		names := make([]string, 0, len(nutritionCatalog))
		for name := range nutritionCatalog {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if strings.Contains(q, name) || strings.Contains(name, q) {
				item, ok = nutritionCatalog[name], true
				break
			}
		}
	}
	if !ok {
		return model.NutritionItem{}, false
	}
	item.Name = titleCaser.String(q)
	return item, true
}

// SearchPhotos returns a deterministic set of photos for query
func SearchPhotos(query string, limit int) []model.PhotoResult {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if q == "" || limit <= 0 {
		return nil
	}

	h := fnv.New32a()
	h.Write([]byte(q))
	seed := int(h.Sum32() % uint32(len(photographers)))

	results := make([]model.PhotoResult, 0, limit)
	for i := 0; i < limit; i++ {
		id := uuid.NewSHA1(photoNamespace, []byte(fmt.Sprintf("%s#%d", q, i))).String()[:11]
		p := photographers[(seed+i)%len(photographers)]
		results = append(results, model.PhotoResult{
			ID:    id,
			Alt:   q,
			Thumb: fmt.Sprintf("https://images.unsplash.com/photo-%s?w=200", id),
			Full:  fmt.Sprintf("https://images.unsplash.com/photo-%s?w=1080", id),
			Credit: model.AttributionRecord{
				Name:    p.name,
				Profile: referral("https://unsplash.com/@" + p.handle),
				Photo:   referral("https://unsplash.com/photos/" + id),
				Source:  model.DefaultAttributionSource,
			},
		})
	}
	return results
}

func referral(link string) string {
	return link + "?utm_source=" + model.AttributionUTMSource + "&utm_medium=referral"
}
