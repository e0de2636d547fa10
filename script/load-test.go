package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// TestResult contains metrics for a single command
type TestResult struct {
	Success      bool
	ResponseTime time.Duration
	Error        error
}

// TestStats contains aggregated test statistics
type TestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	TotalTime          time.Duration
	MinResponseTime    time.Duration
	MaxResponseTime    time.Duration
	TotalResponseTime  time.Duration
	ResponseTimes      []time.Duration
	ErrorCounts        map[string]int
	UserStats          map[int]int    // Commands per user
	ScenarioStats      map[string]int // Commands per scenario
	Lock               sync.Mutex
}

// TradeScenario defines one trade shape sent during the test
type TradeScenario struct {
	Name     string // For stats tracking
	Command  string // BUY or SELL
	Symbol   string
	Quantity string
	Price    string
}

func main() {
	concurrency := flag.Int("c", 5, "Number of concurrent connections")
	totalRequests := flag.Int("n", 100, "Total number of trade commands to send")
	users := flag.Int("users", 3, "Number of test users to create")
	addr := flag.String("addr", "localhost:5432", "Server address")
	balance := flag.String("balance", "10000.00", "Initial balance per test user")
	delayMs := flag.Int("delay", 0, "Delay between commands in milliseconds")
	flag.Parse()

	scenarios := []TradeScenario{
		{"Buy Small", "BUY", "AAPL", "1", "10.00"},
		{"Buy Medium", "BUY", "AAPL", "5", "10.00"},
		{"Buy Fractional", "BUY", "MSFT", "0.5", "40.00"},
		{"Sell Small", "SELL", "AAPL", "1", "12.00"},
		{"Sell Medium", "SELL", "AAPL", "5", "12.00"},
		{"Sell Fractional", "SELL", "MSFT", "0.5", "44.00"},
	}

	userIDs, err := seedUsers(*addr, *users, *balance)
	if err != nil {
		fmt.Printf("Failed to seed users: %v\n", err)
		return
	}

	fmt.Printf("Load testing %s across %d users: %v\n", *addr, len(userIDs), userIDs)
	fmt.Printf("Trade scenarios: %d different combinations\n", len(scenarios))
	fmt.Printf("Concurrency: %d connections\n", *concurrency)
	fmt.Printf("Total commands: %d\n", *totalRequests)

	stats := &TestStats{
		TotalRequests:   *totalRequests,
		MinResponseTime: time.Hour, // Replaced by the first sample
		ErrorCounts:     make(map[string]int),
		ResponseTimes:   make([]time.Duration, 0, *totalRequests),
		UserStats:       make(map[int]int),
		ScenarioStats:   make(map[string]int),
	}

	results := make(chan TestResult, *totalRequests)
	jobs := make(chan int, *totalRequests)

	var wg sync.WaitGroup
	fmt.Println("Starting workers...")
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(*addr, *delayMs, userIDs, scenarios, jobs, results, stats)
		}(i)
	}

	go func() {
		for i := 0; i < *totalRequests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for result := range results {
			stats.Lock.Lock()
			if result.Success {
				stats.SuccessfulRequests++
			} else {
				stats.FailedRequests++
				errMsg := "unknown"
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				stats.ErrorCounts[errMsg]++
			}

			stats.ResponseTimes = append(stats.ResponseTimes, result.ResponseTime)
			stats.TotalResponseTime += result.ResponseTime
			if result.ResponseTime < stats.MinResponseTime {
				stats.MinResponseTime = result.ResponseTime
			}
			if result.ResponseTime > stats.MaxResponseTime {
				stats.MaxResponseTime = result.ResponseTime
			}
			stats.Lock.Unlock()
		}
	}()

	startTime := time.Now()
	fmt.Println("Test running...")

	wg.Wait()
	close(results)
	<-collectDone

	stats.TotalTime = time.Since(startTime)
	printResults(stats)
}

// seedUsers creates the test accounts and returns their IDs
func seedUsers(addr string, count int, balance string) ([]int, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	suffix := rand.Intn(1000000)
	userIDs := make([]int, 0, count)
	for i := 0; i < count; i++ {
		command := fmt.Sprintf("ADD_USER Load Tester loadtest%d-%d secret %s", suffix, i, balance)
		response, err := send(conn, reader, command)
		if err != nil {
			return nil, err
		}

		var id int
		if _, err := fmt.Sscanf(response, "OK %d", &id); err != nil {
			return nil, fmt.Errorf("unexpected response %q", response)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

func worker(addr string, delayMs int, userIDs []int,
	scenarios []TradeScenario, jobs <-chan int, results chan<- TestResult, stats *TestStats) {

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		for range jobs {
			results <- TestResult{Success: false, Error: err}
		}
		return
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for range jobs {
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}

		userID := userIDs[rand.Intn(len(userIDs))]
		scenario := scenarios[rand.Intn(len(scenarios))]

		stats.Lock.Lock()
		stats.UserStats[userID]++
		stats.ScenarioStats[scenario.Name]++
		stats.Lock.Unlock()

		var command string
		if scenario.Command == "BUY" {
			command = fmt.Sprintf("BUY %s %sShares %s %s %d",
				scenario.Symbol, scenario.Symbol, scenario.Quantity, scenario.Price, userID)
		} else {
			command = fmt.Sprintf("SELL %s %s %s %d",
				scenario.Symbol, scenario.Quantity, scenario.Price, userID)
		}

		startTime := time.Now()
		response, err := send(conn, reader, command)
		elapsed := time.Since(startTime)

		if err != nil {
			results <- TestResult{Success: false, ResponseTime: elapsed, Error: err}
			continue
		}

		// A business rejection (e.g. selling before buying) is a valid
		// response, not a failure of the server
		success := strings.HasPrefix(response, "OK ") ||
			strings.HasPrefix(response, "ERROR insufficient")
		var respErr error
		if !success {
			respErr = fmt.Errorf("%s", response)
		}
		results <- TestResult{Success: success, ResponseTime: elapsed, Error: respErr}
	}
}

// send writes one command line and reads the status line back
func send(conn net.Conn, reader *bufio.Reader, command string) (string, error) {
	if _, err := fmt.Fprintln(conn, command); err != nil {
		return "", err
	}
	response, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(response, "\r\n"), nil
}

func printResults(stats *TestStats) {
	fmt.Println("\n--- Results ---")
	fmt.Printf("Total commands:     %d\n", stats.TotalRequests)
	fmt.Printf("Successful:         %d\n", stats.SuccessfulRequests)
	fmt.Printf("Failed:             %d\n", stats.FailedRequests)
	fmt.Printf("Total time:         %v\n", stats.TotalTime)
	if stats.TotalTime > 0 {
		fmt.Printf("Commands/second:    %.1f\n", float64(stats.TotalRequests)/stats.TotalTime.Seconds())
	}

	if len(stats.ResponseTimes) > 0 {
		avg := stats.TotalResponseTime / time.Duration(len(stats.ResponseTimes))
		fmt.Printf("Min response time:  %v\n", stats.MinResponseTime)
		fmt.Printf("Avg response time:  %v\n", avg)
		fmt.Printf("Max response time:  %v\n", stats.MaxResponseTime)

		sorted := make([]time.Duration, len(stats.ResponseTimes))
		copy(sorted, stats.ResponseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		fmt.Printf("p50 response time:  %v\n", sorted[len(sorted)*50/100])
		fmt.Printf("p95 response time:  %v\n", sorted[len(sorted)*95/100])
	}

	fmt.Println("\nCommands per user:")
	for userID, count := range stats.UserStats {
		fmt.Printf("  user %d: %d\n", userID, count)
	}

	fmt.Println("\nCommands per scenario:")
	for name, count := range stats.ScenarioStats {
		fmt.Printf("  %s: %d\n", name, count)
	}

	if len(stats.ErrorCounts) > 0 {
		fmt.Println("\nErrors:")
		for msg, count := range stats.ErrorCounts {
			fmt.Printf("  %s: %d\n", msg, count)
		}
	}
}
