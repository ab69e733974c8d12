package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/internal/trend"
	"github.com/wonny/africa-covid/backend/pkg/logger"
	"github.com/wonny/africa-covid/backend/pkg/redis"
)

// TrendQuery selects a window of a country series. Zero dates are open bounds.
type TrendQuery struct {
	Start             time.Time
	End               time.Time
	IncludePrediction bool
}

// Region lists the members of one region present in the snapshot
type Region struct {
	Name      string                      `json:"name"`
	Continent string                      `json:"continent"`
	Countries []contracts.CountryIdentity `json:"countries"`
}

// Service is the read-only façade over the published snapshot
// ⭐ SSOT: HTTP 계층은 이 서비스만 호출
type Service struct {
	store      *snapshot.Store
	resolver   *geo.Resolver
	cache      Cache
	continents []string
	logger     *logger.Logger
}

// NewService creates the façade; cache may be nil
func NewService(store *snapshot.Store, resolver *geo.Resolver, cache Cache, continents []string, log *logger.Logger) *Service {
	s := &Service{
		store:      store,
		resolver:   resolver,
		cache:      cache,
		continents: continents,
		logger:     log.Module("query"),
	}
	if cache != nil {
		store.Subscribe(func(*snapshot.Snapshot) {
			cache.Purge(context.Background())
		})
	}
	return s
}

// ListAvailableCountries returns the countries of the snapshot sorted by name.
// An empty continent means all of them.
func (s *Service) ListAvailableCountries(continent string) ([]contracts.CountryIdentity, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	out := make([]contracts.CountryIdentity, 0, len(snap.Countries))
	for _, c := range snap.Countries {
		if continent == "" || strings.EqualFold(c.Continent, continent) {
			out = append(out, c)
		}
	}
	return out, nil
}

// country resolves an iso3 code or a name against the snapshot
func (s *Service) country(snap *snapshot.Snapshot, key string) (contracts.CountryIdentity, error) {
	id, err := s.resolver.Lookup(key)
	if err != nil {
		return contracts.CountryIdentity{}, fmt.Errorf("country %q: %w", key, contracts.ErrNotFound)
	}
	if _, ok := snap.Trends[id.ISO3]; !ok {
		return contracts.CountryIdentity{}, fmt.Errorf("country %q: %w", key, contracts.ErrNotFound)
	}
	return id, nil
}

// Country returns the identity of a tracked country
func (s *Service) Country(key string) (contracts.CountryIdentity, error) {
	snap, err := s.store.Current()
	if err != nil {
		return contracts.CountryIdentity{}, err
	}
	return s.country(snap, key)
}

// TrendForCountry returns one country series, optionally spliced with its forecast.
// The window applies after splicing.
func (s *Service) TrendForCountry(key string, q TrendQuery) ([]contracts.TrendDatum, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	id, err := s.country(snap, key)
	if err != nil {
		return nil, err
	}

	series := snap.Trends[id.ISO3]
	if q.IncludePrediction {
		if series, err = spliced(snap, id.ISO3); err != nil {
			return nil, err
		}
	}
	return trend.Window(series, q.Start, q.End), nil
}

func spliced(snap *snapshot.Snapshot, iso3 string) ([]contracts.TrendDatum, error) {
	series := snap.Trends[iso3]
	forecast, ok := snap.Predictions[iso3]
	if !ok || len(series) == 0 {
		return series, nil
	}
	out, err := trend.Splice(series, forecast)
	if err != nil {
		return nil, fmt.Errorf("splice %s: %w", iso3, err)
	}
	return out, nil
}

// AllTrends returns every country spliced with its forecast when one exists
func (s *Service) AllTrends() (contracts.CountryTrendDict, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	out := make(contracts.CountryTrendDict, len(snap.Trends))
	for iso3 := range snap.Trends {
		series, err := spliced(snap, iso3)
		if err != nil {
			return nil, err
		}
		out[iso3] = series
	}
	return out, nil
}

func (s *Service) tracked(continent string) bool {
	return geo.InContinent(contracts.CountryIdentity{Continent: continent}, s.continents)
}

// ContinentTrends aggregates every tracked member of a continent
func (s *Service) ContinentTrends(ctx context.Context, continent string, start, end time.Time) ([]contracts.TrendDatum, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	if !s.tracked(continent) {
		return nil, fmt.Errorf("continent %q: %w", continent, contracts.ErrNotFound)
	}

	series, err := s.aggregate(ctx, snap, "continent", strings.ToLower(continent), s.resolver.Members(continent))
	if err != nil {
		return nil, err
	}
	return trend.Window(series, start, end), nil
}

// Regions lists the regions of the tracked continents
func (s *Service) Regions() ([]Region, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	var out []Region
	for _, continent := range s.continents {
		for _, name := range s.resolver.Regions(continent) {
			r := Region{Name: name, Continent: continent, Countries: []contracts.CountryIdentity{}}
			for _, id := range s.regionMembers(name) {
				if _, ok := snap.Trends[id.ISO3]; ok {
					r.Countries = append(r.Countries, id)
				}
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// regionName matches "Western Africa", "western africa" and "western-africa"
func (s *Service) regionName(key string) (string, bool) {
	want := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", " "))
	for _, continent := range s.continents {
		for _, name := range s.resolver.Regions(continent) {
			if strings.ToLower(name) == want {
				return name, true
			}
		}
	}
	return "", false
}

func (s *Service) regionMembers(region string) []contracts.CountryIdentity {
	var out []contracts.CountryIdentity
	for _, continent := range s.continents {
		for _, id := range s.resolver.Members(continent) {
			if id.Region == region {
				out = append(out, id)
			}
		}
	}
	return out
}

// RegionTrend aggregates the members of one region
func (s *Service) RegionTrend(ctx context.Context, key string, start, end time.Time) ([]contracts.TrendDatum, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	name, ok := s.regionName(key)
	if !ok {
		return nil, fmt.Errorf("region %q: %w", key, contracts.ErrNotFound)
	}

	series, err := s.aggregate(ctx, snap, "region", name, s.regionMembers(name))
	if err != nil {
		return nil, err
	}
	return trend.Window(series, start, end), nil
}

// RegionTrends aggregates every region of the tracked continents
func (s *Service) RegionTrends(ctx context.Context) (map[string][]contracts.TrendDatum, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]contracts.TrendDatum)
	for _, continent := range s.continents {
		for _, name := range s.resolver.Regions(continent) {
			series, err := s.aggregate(ctx, snap, "region", name, s.regionMembers(name))
			if err != nil {
				return nil, err
			}
			out[name] = series
		}
	}
	return out, nil
}

// aggregate is trend.Aggregate behind the snapshot-keyed cache
func (s *Service) aggregate(ctx context.Context, snap *snapshot.Snapshot, kind, id string, members []contracts.CountryIdentity) ([]contracts.TrendDatum, error) {
	key := redis.AggregateKey(kind, id, snap.ID)
	if s.cache != nil {
		if series, ok := s.cache.Get(ctx, key); ok {
			return series, nil
		}
	}

	codes := make([]string, len(members))
	for i, m := range members {
		codes[i] = m.ISO3
	}

	series, err := trend.Aggregate(codes, snap.Trends)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"kind": kind,
			"id":   id,
		}).Error("Aggregation failed")
		return nil, fmt.Errorf("aggregate %s %s: %w", kind, id, err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, series)
	}
	return series, nil
}

// StatsForCountry returns the stats record of one country
func (s *Service) StatsForCountry(key string) (contracts.CountryStats, error) {
	snap, err := s.store.Current()
	if err != nil {
		return contracts.CountryStats{}, err
	}
	id, err := s.resolver.Lookup(key)
	if err != nil {
		return contracts.CountryStats{}, fmt.Errorf("stats %q: %w", key, contracts.ErrNotFound)
	}
	stats, ok := snap.Stats[id.ISO3]
	if !ok {
		return contracts.CountryStats{}, fmt.Errorf("stats %q: %w", key, contracts.ErrNotFound)
	}
	return stats, nil
}

// AllStats returns every stats record sorted by name
func (s *Service) AllStats() ([]contracts.CountryStats, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	out := make([]contracts.CountryStats, 0, len(snap.Stats))
	for _, st := range snap.Stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// RegionStats sums population per region.
// Members with unknown or zero population are left out, not counted as 0.
func (s *Service) RegionStats() (map[string]contracts.RegionStats, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	out := make(map[string]contracts.RegionStats)
	for _, continent := range s.continents {
		for _, name := range s.resolver.Regions(continent) {
			rs := contracts.RegionStats{Name: name, Countries: []string{}}
			for _, id := range s.regionMembers(name) {
				st, ok := snap.Stats[id.ISO3]
				if !ok || !st.HasPopulation() {
					continue
				}
				rs.Population += *st.Population
				rs.Countries = append(rs.Countries, id.ISO3)
			}
			out[name] = rs
		}
	}
	return out, nil
}
