// Command feed_compare checks that two API instances serve the same homework
// feed and detail records, e.g. two replicas sharing Postgres and Redis.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type record struct {
	ID string `json:"id"`
}

type comparison struct {
	Path        string
	StatusA     int
	StatusB     int
	StatusMatch bool
	BodyMatch   bool
	Err         error
}

func main() {
	var (
		baseA   string
		baseB   string
		prefix  string
		timeout time.Duration
	)
	flag.StringVar(&baseA, "a", "http://localhost:8080", "first instance base URL")
	flag.StringVar(&baseB, "b", "http://localhost:8081", "second instance base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	feedPath := strings.TrimRight(prefix, "/") + "/homeworks"

	results := []comparison{compare(client, baseA, baseB, feedPath)}

	ids, err := recordIDs(client, baseA, feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		os.Exit(1)
	}
	for _, id := range ids {
		results = append(results, compare(client, baseA, baseB, feedPath+"/"+id))
	}

	diffs := printReport(results)
	fmt.Printf("Compared %d paths, %d differ\n", len(results), diffs)
	if diffs > 0 {
		os.Exit(1)
	}
}

func recordIDs(client *http.Client, base, path string) ([]string, error) {
	status, body, err := get(client, base, path)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func compare(client *http.Client, baseA, baseB, path string) comparison {
	comp := comparison{Path: path}
	statusA, bodyA, err := get(client, baseA, path)
	if err != nil {
		comp.Err = fmt.Errorf("instance a: %w", err)
		return comp
	}
	statusB, bodyB, err := get(client, baseB, path)
	if err != nil {
		comp.Err = fmt.Errorf("instance b: %w", err)
		return comp
	}
	comp.StatusA, comp.StatusB = statusA, statusB
	comp.StatusMatch = statusA == statusB
	comp.BodyMatch = sameJSON(bodyA, bodyB)
	return comp
}

func get(client *http.Client, base, path string) (int, []byte, error) {
	resp, err := client.Get(strings.TrimRight(base, "/") + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// sameJSON compares the data sections of two envelopes. Meta is ignored
// since it carries per-instance details.
func sameJSON(a, b []byte) bool {
	var ea, eb envelope
	if json.Unmarshal(a, &ea) != nil || json.Unmarshal(b, &eb) != nil {
		return strings.TrimSpace(string(a)) == strings.TrimSpace(string(b))
	}
	var da, db interface{}
	if json.Unmarshal(ea.Data, &da) != nil || json.Unmarshal(eb.Data, &db) != nil {
		return string(ea.Data) == string(eb.Data)
	}
	return reflect.DeepEqual(da, db)
}

func printReport(results []comparison) int {
	diffs := 0
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
			diffs++
		case !res.StatusMatch || !res.BodyMatch:
			status = "DIFF"
			diffs++
		}
		fmt.Printf("[%s] GET %s\n", status, res.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status a=%d b=%d | body match: %t\n", res.StatusA, res.StatusB, res.BodyMatch)
	}
	return diffs
}
