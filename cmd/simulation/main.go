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
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/brokersim/brokerage-api/internal/auth"
	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/database"
	"github.com/brokersim/brokerage-api/internal/engine"
	"github.com/brokersim/brokerage-api/internal/instruments"
	"github.com/brokersim/brokerage-api/internal/notifications"
	"github.com/brokersim/brokerage-api/internal/pricing"
	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/internal/users"
	"github.com/brokersim/brokerage-api/internal/wallet"
	"github.com/brokersim/brokerage-api/pkg/locks"
	"github.com/brokersim/brokerage-api/pkg/middleware"
)

const (
	minOrders     = 15
	maxOrders     = 100
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
)

var symbols = []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the brokerage API
type simulationClient struct {
	baseURL   string
	authToken string
	userID    string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient registers a fresh user, authenticates, and prepares
// performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"register":  {name: "Register"},
			"auth":      {name: "Authentication"},
			"deposit":   {name: "Deposit"},
			"buy":       {name: "Buy Order"},
			"sell":      {name: "Sell Order"},
			"portfolio": {name: "Portfolio"},
			"withdraw":  {name: "Withdraw"},
		},
	}

	creds, err := sc.register()
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	sc.userID = creds.UserID

	token, err := sc.authenticate(creds.APIKey, creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// register creates a new user with a funded wallet
func (sc *simulationClient) register() (*users.RegisteredUser, error) {
	start := time.Now()
	defer func() {
		sc.stats["register"].addDuration(time.Since(start))
	}()

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/register", sc.baseURL),
		"application/json",
		nil,
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("registration failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool                 `json:"success"`
		Data    users.RegisteredUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result.Data, nil
}

// authenticate exchanges API credentials for a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// do sends an authenticated JSON request and decodes the standard envelope
func (sc *simulationClient) do(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// deposit funds the simulation account
func (sc *simulationClient) deposit(amount string) (*types.LedgerEntry, error) {
	start := time.Now()
	defer func() {
		sc.stats["deposit"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool              `json:"success"`
		Data    types.LedgerEntry `json:"data"`
	}
	payload := map[string]interface{}{"amount": amount, "description": "Simulation funding"}
	if err := sc.do("POST", "/api/v1/wallet/deposit", payload, &result); err != nil {
		sc.stats["deposit"].failures++
		return nil, err
	}
	return &result.Data, nil
}

// placeOrder submits a buy or sell order and returns the terminal order row
func (sc *simulationClient) placeOrder(side, symbol string, quantity int64) (*types.Order, error) {
	key := "buy"
	path := "/api/v1/orders/buy"
	if side == types.OrderTypeSell {
		key = "sell"
		path = "/api/v1/orders/sell"
	}

	start := time.Now()
	defer func() {
		sc.stats[key].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool        `json:"success"`
		Data    types.Order `json:"data"`
	}
	payload := map[string]interface{}{"symbol": symbol, "quantity": quantity}
	if err := sc.do("POST", path, payload, &result); err != nil {
		sc.stats[key].failures++
		return nil, err
	}

	if result.Data.OrderID == "" {
		sc.stats[key].failures++
		return nil, fmt.Errorf("no order ID in response")
	}
	return &result.Data, nil
}

// getPortfolio fetches the current portfolio view
func (sc *simulationClient) getPortfolio() (*types.PortfolioResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["portfolio"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool                    `json:"success"`
		Data    types.PortfolioResponse `json:"data"`
	}
	if err := sc.do("GET", "/api/v1/portfolio", nil, &result); err != nil {
		sc.stats["portfolio"].failures++
		return nil, err
	}
	return &result.Data, nil
}

// withdraw pulls funds back out of the wallet
func (sc *simulationClient) withdraw(amount string) (*types.LedgerEntry, error) {
	start := time.Now()
	defer func() {
		sc.stats["withdraw"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool              `json:"success"`
		Data    types.LedgerEntry `json:"data"`
	}
	payload := map[string]interface{}{"amount": amount, "description": "Simulation withdrawal"}
	if err := sc.do("POST", "/api/v1/wallet/withdraw", payload, &result); err != nil {
		sc.stats["withdraw"].failures++
		return nil, err
	}
	return &result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the brokerage simulation
// It starts a local API server and simulates concurrent order flow on one account
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	if _, err := simClient.deposit("250000.00"); err != nil {
		log.Fatal().Err(err).Msg("Failed to fund simulation account")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	type orderResult struct {
		order *types.Order
	}
	resultsChan := make(chan orderResult, targetOrders)
	var wg sync.WaitGroup

	// Workers hammer the same account concurrently; the engine serializes them
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < targetOrders/numWorkers; j++ {
				symbol := symbols[rand.Intn(len(symbols))]
				side := types.OrderTypeBuy
				if rand.Intn(3) == 0 {
					side = types.OrderTypeSell
				}
				quantity := int64(rand.Intn(20) + 1)

				order, err := simClient.placeOrder(side, symbol, quantity)
				if err != nil {
					log.Error().Err(err).
						Int("worker_id", workerID).
						Str("symbol", symbol).
						Msg("Failed to place order")
					continue
				}

				resultsChan <- orderResult{order: order}
				log.Info().
					Int("worker_id", workerID).
					Str("order_id", order.OrderID).
					Str("symbol", order.Symbol).
					Str("side", order.OrderType).
					Int64("quantity", order.Quantity).
					Str("status", order.Status).
					Msg("Order placed")

				// Random sleep between orders
				time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(resultsChan)

	// Collect statistics
	stats := struct {
		TotalOrders     int
		CompletedOrders int
		FailedOrders    int
		TotalBought     decimal.Decimal
		TotalSold       decimal.Decimal
		TotalFees       decimal.Decimal
		RealizedPnL     decimal.Decimal
		StartTime       time.Time
		Symbols         map[string]int
		Sides           map[string]int
		FailureReasons  map[string]int
	}{
		StartTime:      time.Now(),
		Symbols:        make(map[string]int),
		Sides:          make(map[string]int),
		FailureReasons: make(map[string]int),
	}

	for result := range resultsChan {
		order := result.order
		stats.TotalOrders++
		stats.Symbols[order.Symbol]++
		stats.Sides[order.OrderType]++

		switch order.Status {
		case types.OrderStatusCompleted:
			stats.CompletedOrders++
			stats.TotalFees = stats.TotalFees.Add(order.CommissionFee)
			if order.OrderType == types.OrderTypeBuy {
				stats.TotalBought = stats.TotalBought.Add(order.TotalAmount)
			} else {
				stats.TotalSold = stats.TotalSold.Add(order.TotalAmount)
				if order.RealizedGainLoss.Valid {
					stats.RealizedPnL = stats.RealizedPnL.Add(order.RealizedGainLoss.Decimal)
				}
			}
		case types.OrderStatusFailed:
			stats.FailedOrders++
			stats.FailureReasons[order.FailureReason]++
		}
	}

	// Final portfolio and a withdrawal to exercise that path
	portfolio, err := simClient.getPortfolio()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch final portfolio")
	}
	if _, err := simClient.withdraw("100.00"); err != nil {
		log.Error().Err(err).Msg("Final withdrawal failed")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BROKERAGE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Order Statistics
----------------
Total Orders:    %d
Completed:       %d
Failed:          %d
Total Bought:    $%s
Total Sold:      $%s
Total Fees:      $%s
Realized P/L:    $%s
Duration:        %v

Symbol Distribution
-------------------
`, stats.TotalOrders, stats.CompletedOrders, stats.FailedOrders,
		stats.TotalBought.StringFixed(2), stats.TotalSold.StringFixed(2),
		stats.TotalFees.StringFixed(2), stats.RealizedPnL.StringFixed(2),
		duration.Round(time.Millisecond))

	// Print symbol distribution with simple ASCII bar chart
	maxSymbolCount := 0
	for _, count := range stats.Symbols {
		if count > maxSymbolCount {
			maxSymbolCount = count
		}
	}

	for symbol, count := range stats.Symbols {
		barLength := int(float64(count) / float64(maxSymbolCount) * 20)
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%-6s: %s (%d)\n", symbol, bar, count)
	}

	fmt.Println("\nFailure Reasons")
	fmt.Println("---------------")
	for reason, count := range stats.FailureReasons {
		fmt.Printf("%3d x %s\n", count, reason)
	}

	if portfolio != nil {
		fmt.Println("\nFinal Portfolio")
		fmt.Println("---------------")
		fmt.Printf("Cash:  $%s\n", portfolio.CashBalance.StringFixed(2))
		for _, h := range portfolio.Holdings {
			fmt.Printf("%-6s qty=%d avg=%s value=%s\n",
				h.Symbol, h.Quantity, h.AveragePurchasePrice.StringFixed(2), h.MarketValue.StringFixed(2))
		}
		fmt.Printf("Total: $%s\n", portfolio.TotalValue.StringFixed(2))
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := float64(stats.CompletedOrders) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("success_rate", successRate).
		Int("total_orders", stats.TotalOrders).
		Int("completed_orders", stats.CompletedOrders).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// startServer initializes and starts the brokerage API server
// Sets up all required services, handlers and routes
func startServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.DatabasePath = "simulation.db"

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	source := pricing.NewSimulatedSource(time.Now().UnixNano())
	oracle, err := pricing.NewCachedOracle(source, cfg.PriceCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize price cache: %w", err)
	}

	lockManager := locks.NewManager()
	resolver := instruments.NewResolver(db, source)
	notifier := notifications.NewService(db)

	authService := auth.NewService(cfg.JWTSecret, db)
	usersService := users.NewService(db, cfg)
	engineService := engine.NewService(db, oracle, resolver, notifier, lockManager, cfg)
	walletService := wallet.NewService(db, notifier, lockManager, cfg)

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	usersHandlers := users.NewGinHandlers(usersService)
	engineHandlers := engine.NewGinHandlers(engineService)
	walletHandlers := wallet.NewGinHandlers(walletService)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", usersHandlers.RegisterHandler())
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			protected.POST("/orders/buy", engineHandlers.BuyOrderHandler())
			protected.POST("/orders/sell", engineHandlers.SellOrderHandler())
			protected.GET("/orders/:order_id", engineHandlers.GetOrderHandler())
			protected.GET("/portfolio", engineHandlers.PortfolioHandler())
			protected.POST("/wallet/deposit", walletHandlers.DepositHandler())
			protected.POST("/wallet/withdraw", walletHandlers.WithdrawHandler())
			protected.GET("/wallet/transactions", walletHandlers.GetTransactionsHandler())
		}
	}

	// Start the server
	return router.Run(":8080")
}
