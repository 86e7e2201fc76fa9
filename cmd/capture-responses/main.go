// Command capture-responses records the prediction service's replies to a
// fixed set of probes as client test fixtures.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/billie-coop/typeahead/internal/api"
)

// Fixture is a captured exchange.
type Fixture struct {
	Input  map[string]string `json:"input"`
	Status int               `json:"status"`
	Body   json.RawMessage   `json:"body"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: capture-responses <output-dir> [endpoint]")
		fmt.Println("Example: capture-responses internal/api/testdata http://localhost:23432/drug-predict/")
		os.Exit(1)
	}

	outputDir := os.Args[1]
	endpoint := "http://localhost:23432/drug-predict/"
	if len(os.Args) > 2 {
		endpoint = os.Args[2]
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := api.NewClient(endpoint).HealthCheck(ctx)
	cancel()
	if err != nil {
		log.Fatal("Prediction service is not running: ", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	captured := 0
	for i, probe := range probes {
		fmt.Printf("[%d/%d] Capturing: %s... ", i+1, len(probes), probe.Name)

		start := time.Now()
		fx, err := capture(client, endpoint, probe.Input)
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}

		data, err := json.MarshalIndent(fx, "", "  ")
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}
		filename := filepath.Join(outputDir, sanitizeFilename(probe.Name)+".json")
		if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
			fmt.Printf("ERROR saving: %v\n", err)
			continue
		}
		captured++
		fmt.Printf("OK %d (%.2fs)\n", fx.Status, time.Since(start).Seconds())

		// Stay under the service's rate limit.
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Printf("\nCaptured %d/%d responses to %s\n", captured, len(probes), outputDir)
}

func capture(client *http.Client, endpoint string, input map[string]string) (Fixture, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Fixture{}, err
	}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return Fixture{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(body) {
		body, _ = json.Marshal(string(body))
	}
	return Fixture{Input: input, Status: resp.StatusCode, Body: body}, nil
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, s)
}
