// Command insert_inquiries_load fills a running go-tours instance with
// random inquiries through the admin API and reports the insert rate.
//
//	go run ./test_scripts -n 1000 -url http://localhost:8080 -user admin -password secret
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Inquiry is the document posted for every request
type Inquiry struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Travelers int    `json:"travelers"`
	Message   string `json:"message"`
}

var messages = []string{
	"Is the gorilla trek available in August?",
	"Can you arrange airport pickup?",
	"We are a family of four, do you have discounts?",
	"What is the best month for the migration?",
}

// randomName generates a random 6-letter name
func randomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	name[0] -= 32
	return string(name)
}

func randomInquiry(rng *rand.Rand) Inquiry {
	name := randomName(rng)
	return Inquiry{
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Travelers: rng.Intn(8) + 1,
		Message:   messages[rng.Intn(len(messages))],
	}
}

type client struct {
	http     *http.Client
	baseURL  string
	user     string
	password string
}

// insert posts one inquiry to the admin API
func (c *client) insert(ctx context.Context, inquiry Inquiry) error {
	body, err := json.Marshal(inquiry)
	if err != nil {
		return fmt.Errorf("failed to marshal inquiry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/api/inquiry", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func main() {
	var (
		count       = flag.Int("n", 1000, "number of inquiries to insert")
		baseURL     = flag.String("url", "http://localhost:8080", "server URL")
		user        = flag.String("user", "admin", "admin username")
		password    = flag.String("password", os.Getenv("GOTOURS_ADMIN_PASSWORD"), "admin password (default $GOTOURS_ADMIN_PASSWORD)")
		concurrency = flag.Int("c", 4, "concurrent requests")
	)
	flag.Parse()

	if *count <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -n and -c must be greater than 0")
		os.Exit(1)
	}

	c := &client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimRight(*baseURL, "/"),
		user:     *user,
		password: *password,
	}

	fmt.Printf("Starting load test: inserting %d inquiries into %s with %d workers\n", *count, c.baseURL, *concurrency)

	start := time.Now()
	var done, failed atomic.Int64
	reportEvery := int64(max(1, *count/10))

	jobs := make(chan Inquiry)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(jobs)
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := 0; i < *count; i++ {
			select {
			case jobs <- randomInquiry(rng):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < *concurrency; w++ {
		g.Go(func() error {
			for inquiry := range jobs {
				if err := c.insert(ctx, inquiry); err != nil {
					failed.Add(1)
					fmt.Printf("Error inserting inquiry from %s: %v\n", inquiry.Name, err)
				}
				if n := done.Add(1); n%reportEvery == 0 {
					elapsed := time.Since(start)
					fmt.Printf("Progress: %d/%d (%.1f%%) - Rate: %.1f/sec - Errors: %d\n",
						n, *count, float64(n)/float64(*count)*100, float64(n)/elapsed.Seconds(), failed.Load())
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	total := time.Since(start)
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Inquiries attempted:   %d\n", *count)
	fmt.Printf("Failed inserts:        %d\n", failed.Load())
	fmt.Printf("Total time:            %v\n", total)
	fmt.Printf("Average rate:          %.2f inserts/sec\n", float64(*count)/total.Seconds())

	if failed.Load() > 0 {
		os.Exit(1)
	}
}
