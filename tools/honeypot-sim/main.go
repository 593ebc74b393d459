package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand/v2"
	"net/netip"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ports    = []int{21, 22, 23, 80, 443, 445, 3306, 3389, 9418, 8080, 5900}
	logtypes = map[int]int{21: 2000, 22: 4002, 23: 6001, 80: 3000, 443: 3000, 445: 5000, 3306: 8001, 3389: 14001, 9418: 16001}
)

func main() {
	path := flag.String("file", "/var/tmp/opencanary.log", "Honeypot log file to append to")
	rps := flag.Float64("rps", 20, "Records per second")
	duration := flag.Duration("d", 30*time.Second, "How long to run")
	malformed := flag.Float64("malformed", 0.02, "Fraction of malformed lines")
	blank := flag.Float64("blank", 0.01, "Fraction of blank lines")
	filtered := flag.Float64("filtered", 0.05, "Fraction of records without dst_port")
	flag.Parse()

	f, err := os.OpenFile(*path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeID := uuid.NewString()
	limiter := rate.NewLimiter(rate.Limit(*rps), 1)
	var written, skipped atomic.Int64

	log.Printf("Writing simulated honeypot records to %s at %.1f/s (node %s)", *path, *rps, nodeID)

	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		var line []byte
		switch r := rand.Float64(); {
		case r < *blank:
			line = []byte("   ")
		case r < *blank+*malformed:
			line = []byte(`{"utc_time": "truncated`)
		default:
			line, err = json.Marshal(record(nodeID, rand.Float64() < *filtered))
			if err != nil {
				skipped.Add(1)
				continue
			}
		}

		if _, err := f.Write(append(line, '\n')); err != nil {
			log.Fatalf("write failed: %v", err)
		}
		written.Add(1)
	}

	log.Println("Simulation finished.")
	log.Printf("Lines written: %d", written.Load())
	log.Printf("Skipped: %d", skipped.Load())
}

func record(nodeID string, withoutPort bool) map[string]any {
	port := ports[rand.IntN(len(ports))]
	now := time.Now()
	rec := map[string]any{
		"node_id":    nodeID,
		"utc_time":   now.UTC().Format("2006-01-02 15:04:05.000000"),
		"local_time": now.Format("2006-01-02 15:04:05.000000"),
		"src_host":   randomIP(),
		"src_port":   1024 + rand.IntN(64511),
		"dst_host":   "10.0.0.5",
		"dst_port":   port,
		"logtype":    logtypes[port],
		"logdata":    map[string]any{"USERNAME": "root", "PASSWORD": "admin"},
	}
	if withoutPort {
		delete(rec, "dst_port")
	}
	return rec
}

func randomIP() string {
	return netip.AddrFrom4([4]byte{
		byte(rand.IntN(223) + 1),
		byte(rand.IntN(256)),
		byte(rand.IntN(256)),
		byte(rand.IntN(254) + 1),
	}).String()
}
