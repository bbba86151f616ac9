package films

// Override is a curated correction for a title whose detail page cannot be parsed.
type Override struct {
	Title    string `mapstructure:"title"`
	Country  string `mapstructure:"country"`
	Director string `mapstructure:"director"`
}

// DefaultOverrides returns the built-in corrections. The "Ne Zha 2" info panel lists
// its credits in a layout neither the country nor the director path understands.
func DefaultOverrides() []Override {
	return []Override{
		{Title: "Ne Zha 2", Country: "China", Director: "Jiaozi"},
	}
}

// ApplyOverrides overwrites country and director of every record whose title matches an
// override exactly, regardless of what enrichment produced. It returns a new slice and the
// number of records changed.
func ApplyOverrides(records []Film, overrides []Override) ([]Film, int) {
	byTitle := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		byTitle[o.Title] = o
	}
	out := make([]Film, len(records))
	applied := 0
	for i, rec := range records {
		if o, ok := byTitle[rec.Title]; ok {
			rec.Country = o.Country
			rec.Director = o.Director
			applied++
		}
		out[i] = rec
	}
	return out, applied
}
