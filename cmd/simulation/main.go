package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// numInvestors plus the innovator stays within the login rate limit burst
const (
	defaultPortalURL = "http://localhost:8080"
	numInvestors     = 2
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// routeStats tracks performance statistics for a portal route
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate returns min, max, mean, median, p95 and p99 of the recorded durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationStats counts workflow outcomes across all workers
type simulationStats struct {
	mu           sync.Mutex
	StartTime    time.Time
	Logins       int
	BidViews     int
	AlreadyBid   int
	BidsPlaced   int
	BidsRejected int
	AcceptViews  int
	Accepted     int
	Failures     int
}

func (s *simulationStats) inc(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// simulationClient drives the portal as one logged-in browser
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	mu        *sync.Mutex
	stats     map[string]*routeStats
}

func newStatsTable() map[string]*routeStats {
	return map[string]*routeStats{
		"login":       {name: "Login"},
		"profile":     {name: "Investor Profile"},
		"open_bid":    {name: "Open Bid View"},
		"refresh":     {name: "Refresh Bids"},
		"submit":      {name: "Submit Bid"},
		"back":        {name: "Back To Parent"},
		"inventions":  {name: "My Inventions"},
		"detail":      {name: "Innovation Detail"},
		"open_accept": {name: "Open Accept View"},
		"accept":      {name: "Accept Bid"},
		"logout":      {name: "Logout"},
	}
}

// newSimulationClient logs in and returns a client carrying the bearer token
func newSimulationClient(baseURL, username, password string, mu *sync.Mutex, stats map[string]*routeStats) (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		mu:      mu,
		stats:   stats,
	}

	res, err := sc.call("login", http.MethodPost, "/api/v1/auth/token", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = res.Get("data.jwt_token").String()
	return sc, nil
}

// call sends a request, records its latency under route and returns the
// parsed envelope. Non-2xx answers become errors carrying the envelope message.
func (sc *simulationClient) call(route, method, path string, body interface{}) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sc.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+sc.authToken)
	}

	start := time.Now()
	resp, err := sc.client.Do(req)
	elapsed := time.Since(start)

	sc.mu.Lock()
	rs := sc.stats[route]
	rs.addDuration(elapsed)
	sc.mu.Unlock()

	if err != nil {
		sc.fail(rs)
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		sc.fail(rs)
		return gjson.Result{}, err
	}
	parsed := gjson.ParseBytes(raw)
	if resp.StatusCode >= 300 {
		sc.fail(rs)
		return parsed, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, parsed.Get("error.message").String())
	}
	return parsed, nil
}

func (sc *simulationClient) fail(rs *routeStats) {
	sc.mu.Lock()
	rs.failures++
	sc.mu.Unlock()
}

// printPerformanceStats prints a latency table per route
func printPerformanceStats(stats map[string]*routeStats) {
	fmt.Println("\nRoute Performance")
	fmt.Println(strings.Repeat("-", 110))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Route", "Calls", "Failures", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 110))

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		rs := stats[k]
		if rs.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			rs.name, rs.totalCalls, rs.failures,
			min.Round(time.Microsecond), max.Round(time.Microsecond),
			mean.Round(time.Microsecond), median.Round(time.Microsecond),
			p95.Round(time.Microsecond), p99.Round(time.Microsecond))
	}
}

// main runs concurrent investor sessions that bid on live products, then one
// innovator session that accepts the highest bid on each live invention
func main() {
	baseURL := env("PORTAL_URL", defaultPortalURL)
	workers, err := strconv.Atoi(env("SIM_INVESTORS", strconv.Itoa(numInvestors)))
	if err != nil || workers < 1 {
		workers = numInvestors
	}

	stats := &simulationStats{StartTime: time.Now()}
	routes := newStatsTable()
	var mu sync.Mutex

	log.Info().Str("portal", baseURL).Int("investors", workers).Msg("Starting bidding simulation")

	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runInvestor(workerID, baseURL, &mu, routes, stats)
		}(i)
	}
	wg.Wait()

	runInnovator(baseURL, &mu, routes, stats)

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BIDDING SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
Sessions
------------------
Logins:           %d
Bid Views:        %d
Accept Views:     %d

Bids
------------------
Placed:           %d
Already Bid:      %d
Rejected:         %d
Accepted:         %d
Failed Calls:     %d
Duration:         %v
`, stats.Logins, stats.BidViews, stats.AcceptViews,
		stats.BidsPlaced, stats.AlreadyBid, stats.BidsRejected, stats.Accepted,
		stats.Failures, duration.Round(time.Millisecond))
	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("bids_placed", stats.BidsPlaced).
		Int("accepted", stats.Accepted).
		Dur("duration", duration).
		Msg("Simulation completed")

	printPerformanceStats(routes)
}

// runInvestor logs in, opens a bid view for every live product on the
// profile and bids where the investor has not bid yet
func runInvestor(workerID int, baseURL string, mu *sync.Mutex, routes map[string]*routeStats, stats *simulationStats) {
	logger := log.With().Int("worker_id", workerID).Logger()

	sc, err := newSimulationClient(baseURL, env("SIM_INVESTOR_USER", "investor"), env("SIM_INVESTOR_PASS", "investor"), mu, routes)
	if err != nil {
		logger.Error().Err(err).Msg("Investor login failed")
		stats.inc(&stats.Failures)
		return
	}
	stats.inc(&stats.Logins)
	defer sc.call("logout", http.MethodPost, "/api/v1/auth/logout", nil)

	profile, err := sc.call("profile", http.MethodGet, "/api/v1/investor/profile", nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load investor profile")
		stats.inc(&stats.Failures)
		return
	}

	for _, product := range profile.Get("data.products").Array() {
		if !product.Get("isLive").Bool() {
			continue
		}
		inventionID := product.Get("inventionId").Int()

		view, err := sc.call("open_bid", http.MethodPost, "/api/v1/bid-views", map[string]interface{}{
			"product":   json.RawMessage(product.Raw),
			"hasBidded": product.Get("hasBidded").Bool(),
		})
		if err != nil {
			logger.Error().Err(err).Int64("invention_id", inventionID).Msg("Failed to open bid view")
			stats.inc(&stats.Failures)
			continue
		}
		stats.inc(&stats.BidViews)
		viewID := view.Get("data.viewId").String()

		if _, err := sc.call("refresh", http.MethodPost, "/api/v1/bid-views/"+viewID+"/refresh", nil); err != nil {
			logger.Warn().Err(err).Str("view_id", viewID).Msg("Refresh failed")
		}

		if view.Get("data.hasBid").Bool() {
			stats.inc(&stats.AlreadyBid)
		} else {
			amount := (rand.Intn(90) + 10) * 100
			equity := rand.Intn(25) + 1
			res, err := sc.call("submit", http.MethodPost, "/api/v1/bid-views/"+viewID+"/bids", map[string]interface{}{
				"bidAmount": amount,
				"equity":    equity,
			})
			switch {
			case err != nil:
				logger.Warn().Err(err).Int64("invention_id", inventionID).Msg("Bid rejected")
				stats.inc(&stats.BidsRejected)
			case res.Get("data.fieldErrors").Exists():
				logger.Warn().Str("errors", res.Get("data.fieldErrors").Raw).Msg("Bid failed validation")
				stats.inc(&stats.BidsRejected)
			default:
				logger.Info().
					Int64("invention_id", inventionID).
					Int("bid_amount", amount).
					Int("equity", equity).
					Msg("Bid placed")
				stats.inc(&stats.BidsPlaced)
			}
		}

		if _, err := sc.call("back", http.MethodPost, "/api/v1/bid-views/"+viewID+"/back", nil); err != nil {
			logger.Warn().Err(err).Str("view_id", viewID).Msg("Back to profile failed")
		}

		time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
	}
}

// runInnovator accepts the highest bid on every live, unfunded invention
func runInnovator(baseURL string, mu *sync.Mutex, routes map[string]*routeStats, stats *simulationStats) {
	sc, err := newSimulationClient(baseURL, env("SIM_INNOVATOR_USER", "innovator"), env("SIM_INNOVATOR_PASS", "innovator"), mu, routes)
	if err != nil {
		log.Error().Err(err).Msg("Innovator login failed")
		stats.inc(&stats.Failures)
		return
	}
	stats.inc(&stats.Logins)
	defer sc.call("logout", http.MethodPost, "/api/v1/auth/logout", nil)

	portfolio, err := sc.call("inventions", http.MethodGet, "/api/v1/innovator/inventions", nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load inventions")
		stats.inc(&stats.Failures)
		return
	}

	for _, inv := range portfolio.Get("data.active").Array() {
		if !inv.Get("isLive").Bool() {
			continue
		}
		inventionID := inv.Get("inventionId").Int()
		id := strconv.FormatInt(inventionID, 10)

		if _, err := sc.call("detail", http.MethodGet, "/api/v1/innovations/"+id, nil); err != nil {
			log.Error().Err(err).Int64("invention_id", inventionID).Msg("Failed to load detail")
			stats.inc(&stats.Failures)
			continue
		}

		view, err := sc.call("open_accept", http.MethodPost, "/api/v1/accept-views", map[string]interface{}{
			"inventionId":     inventionID,
			"innovationTitle": inv.Get("productDescription").String(),
		})
		if err != nil {
			log.Error().Err(err).Int64("invention_id", inventionID).Msg("Failed to open accept view")
			stats.inc(&stats.Failures)
			continue
		}
		stats.inc(&stats.AcceptViews)
		viewID := view.Get("data.viewId").String()

		var best gjson.Result
		for _, bid := range view.Get("data.bids").Array() {
			if !best.Exists() || bid.Get("bidAmount").Float() > best.Get("bidAmount").Float() {
				best = bid
			}
		}
		if best.Exists() {
			_, err := sc.call("accept", http.MethodPost, "/api/v1/accept-views/"+viewID+"/accept", map[string]interface{}{
				"orderId": best.Get("orderId").String(),
			})
			if err != nil {
				log.Error().Err(err).Int64("invention_id", inventionID).Msg("Failed to accept bid")
				stats.inc(&stats.Failures)
			} else {
				log.Info().
					Int64("invention_id", inventionID).
					Str("order_id", best.Get("orderId").String()).
					Str("bid_amount", best.Get("bidAmount").String()).
					Msg("Bid accepted")
				stats.inc(&stats.Accepted)
			}
		}

		if _, err := sc.call("back", http.MethodPost, "/api/v1/accept-views/"+viewID+"/back", nil); err != nil {
			log.Warn().Err(err).Str("view_id", viewID).Msg("Back to detail failed")
		}
	}
}
