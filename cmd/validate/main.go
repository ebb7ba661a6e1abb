// Command validate smoke-tests the endpoints of a running ledgerviz server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path        string
	method      string
	status      int
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	// Page
	{path: "/visualization", contentType: "text/html", contains: []string{"Visualization", "Account Balance", "ct-legend"}},
	{path: "/visualization?mode=pnl", contentType: "text/html", contains: []string{"Profit and Loss"}},
	{path: "/visualization?mode=percent", contentType: "text/html", contains: []string{"Pie Chart"}},

	// Chart data
	{path: "/visualization/data/balance", contentType: "application/json", contains: []string{`"type":"Line"`}},
	{path: "/visualization/data/pnl", contentType: "application/json", contains: []string{`"type":"Bar"`}},
	{path: "/visualization/data/percent", contentType: "application/json", contains: []string{`"type":"Pie"`}},
	{path: "/visualization/data/radar", status: http.StatusBadRequest, contentType: "text/plain"},
	{path: "/visualization/buckets?start=2024-01-01&end=2024-03-01&interval=month", contentType: "application/json",
		contains: []string{"2024-01-01", "2024-02-01", "2024-03-01"}},

	// Images
	{path: "/visualization/chart/balance.svg", contentType: "image/svg+xml", contains: []string{"<svg"}},
	{path: "/visualization/chart/pnl.png", contentType: "image/png"},
	{path: "/visualization/chart/percent.png", contentType: "image/png"},

	// API
	{path: "/api/health", contentType: "application/json", contains: []string{`"status":"ok"`}},
	{path: "/api/version", contentType: "application/json", contains: []string{`"version"`}},
	{path: "/api/accounts", contentType: "application/json", contains: []string{`"accounts"`}},
	{path: "/api/files", contentType: "application/json", contains: []string{`"files"`}},
	{path: "/api/storage/status", contentType: "application/json", contains: []string{`"encrypted"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, strings.TrimSuffix(*url, "/"), ep)
		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.methodOrGet(), ep.path)
			fmt.Printf("     %v\n", r.err)
			continue
		}
		passed++
		if *verbose {
			fmt.Printf("PASS %s %s %d (%v)\n", ep.methodOrGet(), ep.path, r.status, r.duration)
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func (ep endpoint) methodOrGet() string {
	if ep.method == "" {
		return http.MethodGet
	}
	return ep.method
}

func (ep endpoint) expectedStatus() int {
	if ep.status == 0 {
		return http.StatusOK
	}
	return ep.status
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.methodOrGet(), baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}

	if resp.StatusCode != ep.expectedStatus() {
		r.err = fmt.Errorf("status %d, expected %d", resp.StatusCode, ep.expectedStatus())
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(body, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
