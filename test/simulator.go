package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Venue struct {
	ID              string `gorm:"primary_key"`
	Name            string
	Active          bool
	StandardCost    int64
	PriorityCost    int64
	MaxQueueLength  int
	RequireApproval bool
}

func (Venue) TableName() string {
	return "venues"
}

type Song struct {
	ID              string `gorm:"primary_key"`
	VenueID         string
	ExternalTrackID string
	Title           string
	Artist          string
	DurationSeconds int
	Available       bool
}

func (Song) TableName() string {
	return "songs"
}

type AddQueueRequest struct {
	VenueID  string `json:"venueId"`
	SongID   string `json:"songId"`
	Priority bool   `json:"priority"`
	Notes    string `json:"notes,omitempty"`
}

// Stats counts responses by status code; every status the gateway can answer
// with is an expected outcome under load.
type Stats struct {
	totalRequests atomic.Int64
	transportErrs atomic.Int64
	totalLatency  atomic.Int64
	maxLatency    atomic.Int64

	mu       sync.Mutex
	byStatus map[int]int64
}

func (st *Stats) record(status int, latency time.Duration) {
	ms := latency.Milliseconds()
	st.totalLatency.Add(ms)
	for {
		current := st.maxLatency.Load()
		if ms <= current || st.maxLatency.CompareAndSwap(current, ms) {
			break
		}
	}

	st.mu.Lock()
	st.byStatus[status]++
	st.mu.Unlock()
}

type Simulator struct {
	serverURL     string
	venues        int
	songsPerVenue int
	users         int
	priorityShare float64
	targetRPS     int
	duration      time.Duration
	httpClient    *http.Client
	stats         Stats
}

func NewSimulator(serverURL string, venues, songsPerVenue, users, targetRPS int, duration time.Duration) *Simulator {
	return &Simulator{
		serverURL:     serverURL,
		venues:        venues,
		songsPerVenue: songsPerVenue,
		users:         users,
		priorityShare: 0.2,
		targetRPS:     targetRPS,
		duration:      duration,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 1000,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		stats: Stats{byStatus: make(map[int]int64)},
	}
}

func venueID(i int) string { return fmt.Sprintf("venue-%03d", i) }

func songID(venue, i int) string { return fmt.Sprintf("song-%03d-%05d", venue, i) }

// seed upserts the simulated catalog so repeated runs stay idempotent.
func (s *Simulator) seed(ctx context.Context, db *gorm.DB) error {
	venues := make([]Venue, 0, s.venues)
	for v := 0; v < s.venues; v++ {
		venues = append(venues, Venue{
			ID:             venueID(v),
			Name:           fmt.Sprintf("Venue %d", v),
			Active:         true,
			StandardCost:   10,
			PriorityCost:   25,
			MaxQueueLength: 200,
		})
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&venues).Error; err != nil {
		return fmt.Errorf("failed to upsert venues: %w", err)
	}

	for v := 0; v < s.venues; v++ {
		songs := make([]Song, 0, s.songsPerVenue)
		for i := 0; i < s.songsPerVenue; i++ {
			songs = append(songs, Song{
				ID:              songID(v, i),
				VenueID:         venueID(v),
				ExternalTrackID: fmt.Sprintf("spotify:track:%03d%05d", v, i),
				Title:           fmt.Sprintf("Track %d", i),
				Artist:          fmt.Sprintf("Artist %d", i%97),
				DurationSeconds: 180 + i%120,
				Available:       true,
			})
		}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&songs, 1000).Error; err != nil {
			return fmt.Errorf("failed to upsert songs of %s: %w", venueID(v), err)
		}
	}

	fmt.Printf("seeded %d venues with %d songs each\n", s.venues, s.songsPerVenue)
	return nil
}

func (s *Simulator) sendRequest(ctx context.Context) {
	v := rand.Intn(s.venues)
	body, _ := json.Marshal(AddQueueRequest{
		VenueID:  venueID(v),
		SongID:   songID(v, rand.Intn(s.songsPerVenue)),
		Priority: rand.Float64() < s.priorityShare,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/queue/add", bytes.NewReader(body))
	if err != nil {
		s.stats.transportErrs.Add(1)
		return
	}
	user := rand.Intn(s.users) + 1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-User-Id", fmt.Sprintf("user-%d", user))
	req.Header.Set("X-Auth-User-Name", fmt.Sprintf("Patron %d", user))

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.stats.transportErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.stats.record(resp.StatusCode, time.Since(start))
}

// advance plays the next song at every venue once a second so queues drain
// and tracks become requestable again.
func (s *Simulator) advance(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for v := 0; v < s.venues; v++ {
				req, err := http.NewRequestWithContext(ctx, http.MethodPatch, fmt.Sprintf("%s/queue/%s/next", s.serverURL, venueID(v)), nil)
				if err != nil {
					continue
				}
				req.Header.Set("X-Auth-User-Id", "simulator")
				req.Header.Set("X-Auth-Role", "moderator")
				if resp, err := s.httpClient.Do(req); err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}
	}
}

func (s *Simulator) Run(ctx context.Context) {
	fmt.Printf("target %s, %d rps for %s across %d venues\n", s.serverURL, s.targetRPS, s.duration, s.venues)

	testCtx, cancel := context.WithTimeout(ctx, s.duration)
	defer cancel()

	go s.advance(testCtx)

	ticker := time.NewTicker(time.Second / time.Duration(s.targetRPS))
	defer ticker.Stop()

	started := time.Now()
	var wg sync.WaitGroup
	for {
		select {
		case <-testCtx.Done():
			wg.Wait()
			s.report(time.Since(started))
			return
		case <-ticker.C:
			s.stats.totalRequests.Add(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.sendRequest(testCtx)
			}()
		}
	}
}

func (s *Simulator) report(elapsed time.Duration) {
	total := s.stats.totalRequests.Load()
	answered := total - s.stats.transportErrs.Load()

	avg := int64(0)
	if answered > 0 {
		avg = s.stats.totalLatency.Load() / answered
	}

	fmt.Printf("\nrequests: %d in %s (%.1f rps)\n", total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())
	fmt.Printf("transport errors: %d\n", s.stats.transportErrs.Load())
	fmt.Printf("latency: avg=%dms max=%dms\n", avg, s.stats.maxLatency.Load())

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	statuses := make([]int, 0, len(s.stats.byStatus))
	for status := range s.stats.byStatus {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		fmt.Printf("  %d %-22s %d\n", status, http.StatusText(status), s.stats.byStatus[status])
	}
}

func main() {
	serverURL := flag.String("server", "http://server:8080", "gateway base URL")
	dsn := flag.String("dsn", "host=postgres user=jukebox password=jukebox dbname=jukebox port=5432 sslmode=disable", "postgres DSN used by seed")
	venues := flag.Int("venues", 20, "number of venues")
	songs := flag.Int("songs", 2000, "songs per venue")
	users := flag.Int("users", 10000, "number of distinct requesters")
	rps := flag.Int("rps", 500, "target requests per second")
	duration := flag.Duration("duration", 2*time.Minute, "test duration")
	flag.Parse()

	if flag.NArg() != 1 || (flag.Arg(0) != "seed" && flag.Arg(0) != "run") {
		fmt.Printf("Usage: %s [flags] seed|run\n", os.Args[0])
		os.Exit(1)
	}

	ctx := context.Background()
	s := NewSimulator(*serverURL, *venues, *songs, *users, *rps, *duration)

	switch flag.Arg(0) {
	case "seed":
		db, err := gorm.Open(postgres.Open(*dsn), &gorm.Config{})
		if err != nil {
			fmt.Printf("failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		if err := s.seed(ctx, db); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	case "run":
		s.Run(ctx)
	}
}
