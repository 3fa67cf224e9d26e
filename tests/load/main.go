// Command load runs a local benchmark of the import API: it starts the full
// pipeline against an httptest content origin, drives the HTTP surface with
// concurrent scenarios, and prints a latency/throughput report with an SLO
// evaluation.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"time"

	httpserver "github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http/handlers"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/knowledge"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/pipeline"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/stage"
)

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	PipelineStats  pipeline.Stats   `json:"pipeline_stats"`
	Results        []scenarioResult `json:"results"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server  *httptest.Server
	origin  *httptest.Server
	manager *pipeline.Manager
	cancel  context.CancelFunc
}

func main() {
	importsTotal := flag.Int("imports-total", 300, "total single import requests")
	importsConcurrency := flag.Int("imports-concurrency", 24, "concurrency for single import requests")
	batchesTotal := flag.Int("batches-total", 60, "total batch import requests")
	batchesConcurrency := flag.Int("batches-concurrency", 12, "concurrency for batch import requests")
	statusTotal := flag.Int("status-total", 200, "total job list requests")
	statusConcurrency := flag.Int("status-concurrency", 20, "concurrency for job list requests")
	documentsTotal := flag.Int("documents-total", 120, "total document list requests")
	documentsConcurrency := flag.Int("documents-concurrency", 20, "concurrency for document list requests")
	drainTimeout := flag.Duration("drain-timeout", 60*time.Second, "how long to wait for queued imports to finish")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	env, err := startBenchmarkEnvironment()
	if err != nil {
		log.Fatalf("failed to start local benchmark environment: %v", err)
	}
	defer env.cancel()
	defer env.server.Close()
	defer env.origin.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	importsScenario := runScenario("imports_enqueue", *importsTotal, *importsConcurrency, func(index int) error {
		payload := map[string]any{
			"url":      fmt.Sprintf("%s/articles/%d", env.origin.URL, index),
			"priority": []string{"high", "normal", "low"}[index%3],
		}
		return postJSON(client, env.server.URL+"/v1/imports", payload, http.StatusAccepted)
	})

	batchesScenario := runScenario("batch_imports_enqueue", *batchesTotal, *batchesConcurrency, func(index int) error {
		urls := make([]string, 0, 4)
		for i := 0; i < 4; i++ {
			urls = append(urls, fmt.Sprintf("%s/batch/%d/%d", env.origin.URL, index, i))
		}
		payload := map[string]any{
			"urls":     urls,
			"parallel": index%2 == 0,
		}
		return postJSON(client, env.server.URL+"/v1/imports/batch", payload, http.StatusAccepted)
	})

	statusScenario := runScenario("jobs_list", *statusTotal, *statusConcurrency, func(index int) error {
		state := []string{"queued", "active", "completed"}[index%3]
		return getJSON(client, env.server.URL+"/v1/jobs?state="+state, http.StatusOK)
	})

	documentsScenario := runScenario("documents_list", *documentsTotal, *documentsConcurrency, func(int) error {
		return getJSON(client, env.server.URL+"/v1/documents", http.StatusOK)
	})

	drained := waitForDrain(env.manager, *drainTimeout)

	results := []scenarioResult{
		importsScenario,
		batchesScenario,
		statusScenario,
		documentsScenario,
	}
	stats := env.manager.Statistics()

	slo := map[string]bool{
		"import_enqueue_p95_le_250ms": importsScenario.P95MS <= 250,
		"batch_enqueue_p95_le_250ms":  batchesScenario.P95MS <= 250,
		"jobs_list_p95_le_100ms":      statusScenario.P95MS <= 100,
		"documents_list_p95_le_500ms": documentsScenario.P95MS <= 500,
		"queue_drained":               drained,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		PipelineStats:  stats,
		Results:        results,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal benchmark report: %v", err)
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func startBenchmarkEnvironment() (*benchmarkEnv, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>Benchmark %s</title></head><body><h1>Heading</h1><p>synthetic content for %s</p></body></html>", r.URL.Path, r.URL.Path)
	}))

	store := knowledge.NewMemoryStore()
	fetcher := stage.NewFetcher(stage.FetcherConfig{})

	cfg := pipeline.DefaultConfig()
	cfg.MaxConcurrentJobs = 8
	cfg.RetryDelay = 50 * time.Millisecond
	cfg.ProgressReportingInterval = time.Hour

	manager, err := pipeline.NewManager(cfg, pipeline.StageSet{
		Fetch:     fetcher.Run,
		Analyze:   stage.NewAnalyzer().Run,
		Transform: stage.NewTransformer().Run,
		Integrate: stage.NewIntegrator(store, logger).Run,
	}, logger)
	if err != nil {
		origin.Close()
		cancel()
		return nil, err
	}
	if err := manager.Start(ctx); err != nil {
		origin.Close()
		cancel()
		return nil, err
	}

	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            handlers.NewAPI(manager, store, true),
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	return &benchmarkEnv{
		server:  server,
		origin:  origin,
		manager: manager,
		cancel:  cancel,
	}, nil
}

func waitForDrain(manager *pipeline.Manager, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		stats := manager.Statistics()
		if stats.QueuedJobs == 0 && stats.ActiveJobs == 0 {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	return scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
}

func postJSON(client *http.Client, url string, payload any, expectedStatus int) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func getJSON(client *http.Client, url string, expectedStatus int) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
