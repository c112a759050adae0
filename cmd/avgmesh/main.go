// avgmesh benchmarks private key-value pairs against the group average, without
// disclosing any participant's input to any other participant.
//
// Usage:
//
//	avgmesh --name=<alias> --input=<file.json> [--address=<multiaddr>]
//
// Options:
//
//	-address  Session to join, leave empty to start a new session
//	-name     Human-readable alias used to identify this participant
//	-input    JSON file with key-value pairs to benchmark
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/backkem/avgmesh/internal/libp2pbus"
	"github.com/backkem/avgmesh/pkg/driver"
	"github.com/backkem/avgmesh/pkg/keymaterial"
	"github.com/backkem/avgmesh/pkg/phase"
)

// maxKeyBytes is the largest UTF-8 byte length a benchmark key may
// have: MaxPlaintextSize minus the 16-byte length+share header.
const maxKeyBytes = keymaterial.MaxPlaintextSize - 16

func main() {
	os.Exit(run())
}

func run() int {
	var address, name, inputPath string
	flag.StringVar(&address, "address", "", "Session to join, leave empty to start a new session")
	flag.StringVar(&name, "name", "", "Human-readable alias used to identify each participant")
	flag.StringVar(&inputPath, "input", "", "JSON file with key-value pairs to benchmark")
	flag.Parse()

	if name == "" {
		fmt.Fprintln(os.Stderr, "The -name flag is required.")
		return 1
	}
	if inputPath == "" {
		fmt.Fprintln(os.Stderr, "The -input flag is required.")
		return 1
	}

	input, err := loadInput(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println("Generating public/private key pair...")
	self, err := keymaterial.Generate(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not generate a key pair: %v\n", err)
		return 1
	}
	fmt.Printf("Your public key is: %s\n", self.Public().Fingerprint())

	role := phase.Leader
	if address != "" {
		role = phase.Follower
		fmt.Printf("Joining session at %s...\n", address)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := libp2pbus.Dial(ctx, libp2pbus.Config{RemoteAddr: address, Stdout: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not join the session: %v\n", err)
		return 1
	}
	defer bus.Close()

	d, err := driver.New(driver.Config{
		Role:  role,
		Alias: name,
		Self:  self,
		Input: input,
		Bus:   bus,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not start: %v\n", err)
		return 1
	}

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, driver.ErrAborted) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Unexpected error: %v\n", err)
		return 1
	}
	return 0
}

// loadInput reads path as a JSON object of string keys to numeric
// values and scales each value ×100, rounding half away from zero, to
// its fixed-point representation.
func loadInput(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no such file: %s\nThe input must be a JSON file with key-value pairs.", path)
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("the file %s is not a valid JSON file with a map of string keys and number values", path)
	}
	// exact holds the same values as written in the file, so that the
	// ×100 scaling below is exact in decimal (1.005 becomes 100.5).
	var exact map[string]json.Number
	_ = json.Unmarshal(data, &exact) // cannot fail once raw has decoded

	scaled := make(map[string]int64, len(raw))
	for key := range raw {
		if utf8.RuneCountInString(key) == 0 {
			return nil, fmt.Errorf("the file %s contains an empty key", path)
		}
		if len(key) > maxKeyBytes {
			return nil, fmt.Errorf("key %q (%d bytes) exceeds the maximum key size of %d bytes", key, len(key), maxKeyBytes)
		}
		r, _ := new(big.Rat).SetString(exact[key].String())
		q, m := new(big.Int).QuoRem(new(big.Int).Mul(r.Num(), big.NewInt(100)), r.Denom(), new(big.Int))
		if m.Abs(m).Lsh(m, 1).Cmp(r.Denom()) >= 0 { // round half away from zero
			q.Add(q, big.NewInt(int64(r.Sign())))
		}
		scaled[key] = q.Int64()
	}
	return scaled, nil
}
