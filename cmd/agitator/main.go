// Package main - agitator
// Load generator for stress testing the condition server.
// Simulates many coaches firing text commands over WebSocket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/random"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Athletes       []string
	Seed           int64
	Output         string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Replies          int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

type frame struct {
	Type string `json:"type"`
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 250*time.Millisecond, "Command interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	athletes := flag.String("athletes", "kai,ren,sol", "Comma separated athlete ids to drive")
	seed := flag.Int64("seed", 1, "Seed for command selection")
	output := flag.String("out", "stress_test_results.json", "Where to write the JSON summary")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Athletes:       strings.Split(*athletes, ","),
		Seed:           *seed,
		Output:         *output,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Condition Server Stress Test")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Printf("Athletes: %s\n", strings.Join(config.Athletes, ", "))
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%s recv=%s errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.MessagesSent)),
					humanize.Comma(atomic.LoadInt64(&stats.MessagesReceived)),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	athleteID := config.Athletes[clientID%len(config.Athletes)]
	rng := random.Derive(config.Seed, fmt.Sprintf("client-%d", clientID))

	u, err := url.Parse(config.ServerURL)
	if err != nil {
		log.Printf("Client %d: URL parse error: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	q := u.Query()
	q.Set("athlete", athleteID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Replies arrive in command order; events are only counted.
	answers := make(chan struct{}, 64)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			var f frame
			if json.Unmarshal(data, &f) != nil {
				continue
			}
			switch f.Type {
			case "reply":
				atomic.AddInt64(&stats.Replies, 1)
			case "error":
				atomic.AddInt64(&stats.Rejected, 1)
			default:
				continue
			}
			select {
			case answers <- struct{}{}:
			default:
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := conn.WriteMessage(websocket.TextMessage, []byte(randomCommand(rng))); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)

			select {
			case <-answers:
				stats.mu.Lock()
				stats.Latencies = append(stats.Latencies, time.Since(start))
				stats.mu.Unlock()
			case <-time.After(5 * time.Second):
				atomic.AddInt64(&stats.Errors, 1)
			case <-ctx.Done():
				return
			}
		}
	}
}

// randomCommand picks a mix weighted toward training.
func randomCommand(rng *rand.Rand) string {
	drills := athlete.AllDrills()
	moraleEvents := athlete.AllMoraleEvents()

	switch roll := rng.Float64(); {
	case roll < 0.6:
		d := drills[rng.IntN(len(drills))]
		return fmt.Sprintf("train %s %.2f", strings.ToLower(string(d)), 0.3+rng.Float64()*0.7)
	case roll < 0.8:
		e := moraleEvents[rng.IntN(len(moraleEvents))]
		return "morale " + strings.ToLower(string(e))
	case roll < 0.98:
		return "status"
	default:
		// Deliberate typo to exercise suggestions
		return "train shootng"
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Replies:           %s\n", humanize.Comma(atomic.LoadInt64(&stats.Replies)))
	fmt.Printf("Rejected:          %s\n", humanize.Comma(atomic.LoadInt64(&stats.Rejected)))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %s cmd/sec\n", humanize.FtoaWithDigits(throughput, 2))

	stats.mu.Lock()
	lat := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	if len(lat) > 0 {
		fmt.Printf("\nRound trip:\n")
		fmt.Printf("  Min: %v\n", lat[0])
		fmt.Printf("  P50: %v\n", percentile(lat, 0.5))
		fmt.Printf("  P99: %v\n", percentile(lat, 0.99))
		fmt.Printf("  Max: %v\n", lat[len(lat)-1])
	}

	fmt.Println("\n-----------------------------------------")
	switch rate := float64(errs) / float64(sent+1); {
	case errs == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case rate < 0.05:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"p50_ms":             float64(percentile(lat, 0.5)) / 1e6,
		"p99_ms":             float64(percentile(lat, 0.99)) / 1e6,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
			"athletes": config.Athletes,
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.Output, jsonData, 0o644); err != nil {
		log.Printf("Failed to write results: %v", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.Output)
}
