package knowledge

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

// MaxProperties is the number of listings returned per retrieval.
const MaxProperties = 3

var queryPriceRange = regexp.MustCompile(`(\d[\d,]*)\s*-\s*(\d[\d,]*)`)

// Retriever turns a turn's query and profile into listing filters and phase content.
type Retriever struct {
	base          *Base
	locations     *nlp.Gazetteer
	propertyTypes *nlp.Gazetteer
	features      *nlp.Gazetteer
}

// NewRetriever creates a Retriever over base.
func NewRetriever(base *Base) *Retriever {
	return &Retriever{
		base:          base,
		locations:     nlp.Locations,
		propertyTypes: nlp.PropertyTypes,
		features:      nlp.Features,
	}
}

// Base returns the underlying knowledge store.
func (r *Retriever) Base() *Base { return r.base }

// Retrieve returns the phase content for phase and up to MaxProperties listings that
// match the profile, refined by filters found in query.
func (r *Retriever) Retrieve(query string, phase models.Phase, profile models.UserProfile) models.RetrievalResult {
	filters := r.Filters(query, profile)
	res := models.RetrievalResult{
		PhaseKnowledge: r.base.PhaseKnowledge(phase.Key()),
		Properties:     r.base.Properties(filters, MaxProperties),
	}
	slog.Debug("Retriever.Retrieve", "phase", phase, "filters", len(filters), "properties", len(res.Properties))
	return res
}

// PhaseOnly returns the phase content without searching listings.
func (r *Retriever) PhaseOnly(phase models.Phase) models.RetrievalResult {
	return models.RetrievalResult{PhaseKnowledge: r.base.PhaseKnowledge(phase.Key())}
}

// Filters builds listing filters from the profile, then lets filters parsed from the
// query replace them column by column.
func (r *Retriever) Filters(query string, profile models.UserProfile) Filters {
	f := make(Filters)
	if profile.Location != "" {
		f.Set(models.ColumnLocation, profile.Location)
	}
	if profile.PropertyType != "" {
		f.Set(models.ColumnType, profile.PropertyType)
	}
	if profile.Budget != "" {
		f.Set(models.ColumnPrice, profile.Budget)
	}
	if len(profile.Features) > 0 {
		f.SetAny(models.ColumnFeatures, profile.Features)
	}
	if profile.Bedrooms != "" {
		f.Set(models.ColumnBedrooms, profile.Bedrooms)
	}

	for col, vals := range r.queryFilters(query) {
		f[col] = vals
	}
	return f
}

func (r *Retriever) queryFilters(query string) Filters {
	f := make(Filters)
	if loc, ok := r.locations.First(query); ok {
		f.Set(models.ColumnLocation, loc)
	}
	if typ, ok := r.propertyTypes.First(query); ok {
		f.Set(models.ColumnType, typ)
	}
	if m := queryPriceRange.FindStringSubmatch(query); m != nil {
		f.Set(models.ColumnPrice, strings.ReplaceAll(m[1], ",", "")+"-"+strings.ReplaceAll(m[2], ",", ""))
	}
	if feats := r.features.Find(query); len(feats) > 0 {
		f.SetAny(models.ColumnFeatures, feats)
	}
	return f
}

// Alternatives returns up to limit listings of the profile's property type that are not
// in shown. Location, budget and feature constraints are relaxed.
func (r *Retriever) Alternatives(profile models.UserProfile, shown []string, limit int) []models.Listing {
	f := make(Filters)
	if profile.PropertyType != "" {
		f.Set(models.ColumnType, profile.PropertyType)
	}
	seen := make(map[string]struct{}, len(shown))
	for _, id := range shown {
		seen[id] = struct{}{}
	}
	return r.base.Find(f, limit, func(l models.Listing) bool {
		_, ok := seen[l.ID]
		return ok
	})
}
