package matchpool

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tpg-connect/connect-backend/internal/directory"
)

// GeneratorConfig carries the scoring weights and size limits. Weights must
// sum to 1.0; config.Validate enforces that at startup.
type GeneratorConfig struct {
	PoolSize       int
	MinPoolSize    int
	InterestWeight float64
	DistanceWeight float64
	IntentWeight   float64
}

// Generator ranks eligible candidates for a single user. It is deterministic:
// the same owner, preferences and candidate set always produce the same
// ordered entries.
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

// BuildResult is the outcome of one generation run
type BuildResult struct {
	Entries   []*PoolEntry
	LowSupply bool
	Filters   FilterSnapshot
}

// Build filters, scores and orders candidates for the owner. excluded reports
// hard exclusions (blocks either way, safety rule hits); actedOn holds ids
// the owner has already acted on within the lookback window. Both are applied
// before preference filters so excluded users never influence ranking.
func (g *Generator) Build(
	owner *directory.ProfileSummary,
	prefs *directory.Preferences,
	candidates []*directory.ProfileSummary,
	excluded func(*directory.ProfileSummary) bool,
	actedOn map[string]struct{},
) *BuildResult {
	scored := make([]*PoolEntry, 0, len(candidates))

	for _, cand := range candidates {
		if cand.UserID == owner.UserID || !cand.IsActive {
			continue
		}
		if _, done := actedOn[cand.UserID]; done {
			continue
		}
		if excluded != nil && excluded(cand) {
			continue
		}
		if !matchesPreferences(prefs, cand) {
			continue
		}

		dist := haversineDistance(owner.Latitude, owner.Longitude, cand.Latitude, cand.Longitude)
		if prefs.MaxDistanceKm > 0 && dist > prefs.MaxDistanceKm {
			continue
		}

		shared := sharedInterests(owner.Interests, cand.Interests)
		score := g.score(owner, cand, shared, dist, prefs.MaxDistanceKm)

		scored = append(scored, &PoolEntry{
			CandidateID:     cand.UserID,
			Name:            cand.Name,
			Age:             cand.Age,
			PrimaryPhotoURL: cand.PrimaryPhotoURL,
			JobTitle:        cand.JobTitle,
			DatingIntention: cand.DatingIntention,
			DistanceKm:      round1(dist),
			Score:           score,
			SharedInterests: shared,
			Reason:          generateReason(shared, dist, owner.DatingIntention == cand.DatingIntention),
		})
	}

	// Score desc, then distance asc, then candidate id asc. The id tiebreak
	// keeps ordering stable across runs.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].DistanceKm != scored[j].DistanceKm {
			return scored[i].DistanceKm < scored[j].DistanceKm
		}
		return scored[i].CandidateID < scored[j].CandidateID
	})

	if len(scored) > g.cfg.PoolSize {
		scored = scored[:g.cfg.PoolSize]
	}
	for i, entry := range scored {
		entry.Position = i
	}

	return &BuildResult{
		Entries:   scored,
		LowSupply: len(scored) < g.cfg.MinPoolSize,
		Filters: FilterSnapshot{
			MinAge:           prefs.MinAge,
			MaxAge:           prefs.MaxAge,
			MaxDistanceKm:    prefs.MaxDistanceKm,
			PreferredGenders: prefs.PreferredGenders,
		},
	}
}

func (g *Generator) score(owner, cand *directory.ProfileSummary, shared []string, dist, maxDist float64) float64 {
	interestScore := 0.0
	if len(owner.Interests) > 0 {
		interestScore = float64(len(shared)) / float64(len(owner.Interests))
	}

	distanceScore := 0.0
	if maxDist > 0 {
		distanceScore = 1 - math.Min(dist/maxDist, 1)
	}

	intentScore := 0.0
	if owner.DatingIntention != "" && owner.DatingIntention == cand.DatingIntention {
		intentScore = 1.0
	}

	total := interestScore*g.cfg.InterestWeight +
		distanceScore*g.cfg.DistanceWeight +
		intentScore*g.cfg.IntentWeight

	// Round so equality comparisons in the sort are not float-noise sensitive
	return math.Round(total*10000) / 10000
}

// matchesPreferences applies the owner's age and gender filters. An empty
// preferred-gender list means no gender restriction.
func matchesPreferences(prefs *directory.Preferences, cand *directory.ProfileSummary) bool {
	if cand.Age < prefs.MinAge || cand.Age > prefs.MaxAge {
		return false
	}
	if len(prefs.PreferredGenders) == 0 {
		return true
	}
	for _, g := range prefs.PreferredGenders {
		if strings.EqualFold(g, cand.Gender) {
			return true
		}
	}
	return false
}

func sharedInterests(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]bool, len(a))
	for _, interest := range a {
		set[strings.ToLower(interest)] = true
	}
	var shared []string
	for _, interest := range b {
		if set[strings.ToLower(interest)] {
			shared = append(shared, interest)
		}
	}
	sort.Strings(shared)
	return shared
}

func generateReason(shared []string, dist float64, sameIntent bool) string {
	switch {
	case len(shared) >= 3:
		return fmt.Sprintf("You share %d interests including %s", len(shared), shared[0])
	case len(shared) > 0:
		return fmt.Sprintf("You both enjoy %s", strings.Join(shared, " and "))
	case sameIntent:
		return "You're looking for the same thing"
	case dist <= 10:
		return "Lives nearby"
	default:
		return "New to your area"
	}
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371 // km

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
