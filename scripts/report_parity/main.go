// Command report_parity runs the same report requests against two API
// instances, typically one on PostgreSQL and one on the in-memory store, both
// seeded with the same -seed, and reports where their data differs.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target    target
	StatusA   int
	StatusB   int
	StatusOK  bool
	BodyMatch bool
	Error     error
	DurationA time.Duration
	DurationB time.Duration
}

func main() {
	var (
		baseA       string
		baseB       string
		prefix      string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&baseA, "a-base", "http://localhost:8080", "first API base URL")
	flag.StringVar(&baseB, "b-base", "http://localhost:8081", "second API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&targetsPath, "targets", "", "JSON targets file; defaults to every report listed by the first API")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	var (
		targets []target
		err     error
	)
	if targetsPath != "" {
		targets, err = loadTargets(targetsPath)
	} else {
		targets, err = discoverTargets(client, baseA, prefix)
	}
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	comparisons := make([]comparison, 0, len(targets))
	breaking, optionalDiff := 0, 0
	for _, t := range targets {
		comp := compareTarget(client, baseA, baseB, t)
		if comp.Error != nil || !comp.StatusOK || !comp.BodyMatch {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

// discoverTargets turns the report index of base into one critical target per
// report.
func discoverTargets(client *http.Client, base, prefix string) ([]target, error) {
	index := target{Method: http.MethodGet, Path: strings.TrimRight(prefix, "/") + "/reports"}
	resp, _, err := performRequest(client, base, index)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report index returned %d", resp.StatusCode)
	}

	var envelope struct {
		Data []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode report index: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil, errors.New("report index is empty")
	}

	targets := make([]target, 0, len(envelope.Data))
	for _, name := range envelope.Data {
		targets = append(targets, target{Method: http.MethodGet, Path: index.Path + "/" + name, Critical: true})
	}
	return targets, nil
}

func compareTarget(client *http.Client, baseA, baseB string, tgt target) comparison {
	comp := comparison{Target: tgt}
	respA, durA, errA := performRequest(client, baseA, tgt)
	respB, durB, errB := performRequest(client, baseB, tgt)
	comp.DurationA = durA
	comp.DurationB = durB

	if errA == nil {
		defer respA.Body.Close()
	}
	if errB == nil {
		defer respB.Body.Close()
	}
	if errA != nil {
		comp.Error = fmt.Errorf("first request failed: %w", errA)
		return comp
	}
	if errB != nil {
		comp.Error = fmt.Errorf("second request failed: %w", errB)
		return comp
	}

	comp.StatusA = respA.StatusCode
	comp.StatusB = respB.StatusCode
	comp.StatusOK = comp.StatusA == comp.StatusB

	bodyA, err := io.ReadAll(respA.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read first body: %w", err)
		return comp
	}
	bodyB, err := io.ReadAll(respB.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read second body: %w", err)
		return comp
	}

	comp.BodyMatch = bodiesEqual(bodyA, bodyB)
	return comp
}

func performRequest(client *http.Client, base string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

// bodiesEqual compares the data and error members of two response envelopes.
// meta carries timings and cache flags that legitimately differ.
func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	stripMeta(aj)
	stripMeta(bj)
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func stripMeta(v interface{}) {
	if envelope, ok := v.(map[string]interface{}); ok {
		delete(envelope, "meta")
	}
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Report Parity")
	fmt.Fprintln(w, "=============")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusOK || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  A status: %d (%s)\n", res.StatusA, res.DurationA)
		fmt.Fprintf(w, "  B status: %d (%s)\n", res.StatusB, res.DurationB)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusOK, res.BodyMatch, res.Target.Critical)
		}
	}
}
