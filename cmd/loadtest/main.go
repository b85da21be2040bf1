// Команда loadtest гоняет сценарии checkout против HTTP API магазина:
// создание заказа, опционально подтверждение оплаты подписанным вебхуком и
// отмена. Считает латентности и коды ответов по каждому endpoint.
package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const signatureHeader = "X-Gateway-Signature"

type loadMode string

const (
	modeCheckout              loadMode = "checkout"
	modeCheckoutConfirm       loadMode = "checkout-confirm"
	modeCheckoutConfirmCancel loadMode = "checkout-confirm-cancel"
)

type config struct {
	baseURL       string
	total         int
	totalSet      bool
	duration      time.Duration
	concurrency   int
	timeout       time.Duration
	mode          loadMode
	cancelRate    int
	productID     string
	size          string
	qty           int
	customerTag   string
	webhookSecret string
	outputPath    string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type endpointReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time                 `json:"started_at"`
	DurationSeconds   float64                   `json:"duration_seconds"`
	TotalScenarios    int64                     `json:"total_scenarios"`
	SuccessScenarios  int64                     `json:"success_scenarios"`
	FailedScenarios   int64                     `json:"failed_scenarios"`
	ErrorRate         float64                   `json:"error_rate"`
	RPS               float64                   `json:"rps"`
	ScenarioLatencyMs latencySummary            `json:"scenario_latency_ms"`
	Endpoints         map[string]endpointReport `json:"endpoints"`
}

type endpointStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newCollector() *collector {
	return &collector{
		endpoints: make(map[string]*endpointStats),
	}
}

func (c *collector) record(endpoint string, latency time.Duration, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.endpoints[endpoint]
	if !ok {
		stats = &endpointStats{
			codes: make(map[string]int64),
		}
		c.endpoints[endpoint] = stats
	}

	stats.calls++
	if statusCode >= 200 && statusCode < 300 {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[fmt.Sprintf("%d", statusCode)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Endpoints:       make(map[string]endpointReport, len(c.endpoints)),
	}

	scenarioStats := c.endpoints["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.endpoints {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Endpoints[name] = endpointReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var timeoutValue string
	var durationValue string

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "storefront HTTP API base URL")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&modeValue, "mode", string(modeCheckout), "load mode: checkout | checkout-confirm | checkout-confirm-cancel")
	flag.IntVar(&cfg.cancelRate, "cancel-rate", 0, "cancel probability in percent for checkout-confirm mode (0..100)")
	flag.StringVar(&cfg.productID, "product", "prod-linen-shirt", "catalog product id")
	flag.StringVar(&cfg.size, "size", "", "optional variant size")
	flag.IntVar(&cfg.qty, "qty", 1, "items per order")
	flag.StringVar(&cfg.customerTag, "customer-tag", "load", "customer name/email prefix")
	flag.StringVar(&cfg.webhookSecret, "webhook-secret", "", "gateway webhook secret for confirm modes")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.qty <= 0 {
		return cfg, errors.New("qty must be > 0")
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	}
	if strings.TrimSpace(cfg.baseURL) == "" {
		return cfg, errors.New("addr is required")
	}
	if strings.TrimSpace(cfg.productID) == "" {
		return cfg, errors.New("product is required")
	}
	if strings.TrimSpace(cfg.customerTag) == "" {
		return cfg, errors.New("customer-tag is required")
	}
	if cfg.mode != modeCheckout && cfg.webhookSecret == "" {
		return cfg, errors.New("webhook-secret is required for confirm modes")
	}
	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCheckout:
		return modeCheckout, nil
	case modeCheckoutConfirm:
		return modeCheckoutConfirm, nil
	case modeCheckoutConfirmCancel:
		return modeCheckoutConfirmCancel, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.timeout}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(client, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

type checkoutResult struct {
	InternalOrderID string `json:"internal_order_id"`
	GatewayOrderID  string `json:"gateway_order_id"`
}

func runScenario(client *http.Client, cfg config, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := http.StatusOK
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioCode)
	}()

	created, statusCode, err := callCheckout(client, cfg, index, runID, col)
	if err != nil {
		scenarioCode = failureCode(statusCode)
		return err
	}
	if created.InternalOrderID == "" {
		scenarioCode = http.StatusInternalServerError
		return errors.New("checkout response returned empty order id")
	}

	if cfg.mode == modeCheckout {
		return nil
	}

	if statusCode, err := callWebhookConfirm(client, cfg, created, index, col); err != nil {
		scenarioCode = failureCode(statusCode)
		return err
	}

	if cfg.mode == modeCheckoutConfirmCancel || (cfg.mode == modeCheckoutConfirm && shouldCancelScenario(index, cfg.cancelRate)) {
		if statusCode, err := callCancel(client, cfg, created.InternalOrderID, col); err != nil {
			scenarioCode = failureCode(statusCode)
			return err
		}
	}

	return nil
}

func callCheckout(client *http.Client, cfg config, index int, runID string, col *collector) (checkoutResult, int, error) {
	payload, err := json.Marshal(map[string]any{
		"customer": map[string]string{
			"name":  fmt.Sprintf("%s-%s-%d", cfg.customerTag, runID, index),
			"email": fmt.Sprintf("%s-%s-%d@example.com", cfg.customerTag, runID, index),
		},
		"address": map[string]string{
			"street":      "1 Load Test Ln",
			"city":        "Kochi",
			"state":       "Kerala",
			"country":     "IN",
			"postal_code": "682001",
		},
		"items": []map[string]any{
			{"product_id": cfg.productID, "size": cfg.size, "qty": cfg.qty},
		},
	})
	if err != nil {
		return checkoutResult{}, 0, err
	}

	body, statusCode, err := doPost(client, cfg.baseURL+"/checkout", payload, "", col, "checkout")
	if err != nil {
		return checkoutResult{}, statusCode, err
	}

	var created checkoutResult
	if err := json.Unmarshal(body, &created); err != nil {
		return checkoutResult{}, statusCode, fmt.Errorf("decode checkout response: %w", err)
	}
	return created, statusCode, nil
}

func callWebhookConfirm(client *http.Client, cfg config, created checkoutResult, index int, col *collector) (int, error) {
	rawBody, err := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       fmt.Sprintf("pay_load_%d", index),
					"order_id": created.GatewayOrderID,
					"notes": map[string]string{
						"internal_order_id": created.InternalOrderID,
					},
				},
			},
		},
	})
	if err != nil {
		return 0, err
	}

	mac := hmac.New(sha256.New, []byte(cfg.webhookSecret))
	mac.Write(rawBody)
	signature := hex.EncodeToString(mac.Sum(nil))

	_, statusCode, err := doPost(client, cfg.baseURL+"/webhooks/payment", rawBody, signature, col, "webhook")
	return statusCode, err
}

func callCancel(client *http.Client, cfg config, orderID string, col *collector) (int, error) {
	payload, err := json.Marshal(map[string]string{"status": "Cancelled"})
	if err != nil {
		return 0, err
	}

	_, statusCode, err := doPost(client, cfg.baseURL+"/orders/"+orderID+"/status", payload, "", col, "cancel")
	return statusCode, err
}

func doPost(client *http.Client, url string, payload []byte, signature string, col *collector, endpoint string) ([]byte, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		col.record(endpoint, time.Since(start), 0)
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}

	resp, err := client.Do(req)
	if err != nil {
		col.record(endpoint, time.Since(start), 0)
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	col.record(endpoint, time.Since(start), resp.StatusCode)

	if readErr != nil {
		return nil, resp.StatusCode, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func failureCode(statusCode int) int {
	if statusCode == 0 || (statusCode >= 200 && statusCode < 300) {
		return http.StatusInternalServerError
	}
	return statusCode
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	endpointNames := make([]string, 0, len(result.Endpoints))
	for name := range result.Endpoints {
		if name == "scenario" {
			continue
		}
		endpointNames = append(endpointNames, name)
	}
	sort.Strings(endpointNames)
	for _, name := range endpointNames {
		stats := result.Endpoints[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
