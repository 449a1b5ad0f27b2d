// arcfuzz feeds random documents to the decoder and reports inputs that make
// it panic rather than return an error. With --minimize it shrinks such an
// input to a smaller one that still panics.
package main

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	mrand "math/rand"
	"os"

	"github.com/dgryski/go-ddmin"
	"github.com/spf13/pflag"

	"github.com/graphstash/archive"
)

// panics reports whether decoding doc panics.
func panics(d *archive.Decoder, doc []byte) (p any) {
	defer func() { p = recover() }()
	_, _ = d.Unmarshal(doc)
	return nil
}

func minimize(d *archive.Decoder, fname string) {
	b, err := os.ReadFile(fname)
	if err != nil {
		log.Fatal(err)
	}
	if panics(d, b) == nil {
		log.Fatalf("%s does not make the decoder panic", fname)
	}
	small := ddmin.Minimize(b, func(in []byte) ddmin.Result {
		if panics(d, in) != nil {
			return ddmin.Fail
		}
		return ddmin.Pass
	})
	out := fname + ".min"
	if err := os.WriteFile(out, small, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("minimized %d bytes to %d, written to %s\n", len(b), len(small), out)
	fmt.Println(hex.Dump(small))
}

func main() {
	flags := pflag.NewFlagSet("arcfuzz", pflag.ExitOnError)
	iterations := flags.IntP("iterations", "n", 0, "number of documents to try (0 runs forever)")
	maxLen := flags.Int("max-len", 200, "maximum body length")
	verbose := flags.BoolP("verbose", "v", false, "dump every document and its error")
	minimizeFile := flags.String("minimize", "", "shrink the crashing input in this file and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	m := archive.NewManager()
	d := archive.NewDecoder(m)

	if *minimizeFile != "" {
		minimize(d, *minimizeFile)
		return
	}

	// a valid raw document header for the built-in registry
	header, err := archive.NewEncoder(m).Marshal(nil)
	if err != nil {
		log.Fatal(err)
	}
	header = header[:13]

	for i := 0; *iterations == 0 || i < *iterations; i++ {
		body := make([]byte, mrand.Intn(*maxLen+1))
		if _, err := crand.Read(body); err != nil {
			log.Fatal(err)
		}
		doc := append(append([]byte{}, header...), body...)

		var derr error
		p := func() (p any) {
			defer func() { p = recover() }()
			_, derr = d.Unmarshal(doc)
			return nil
		}()
		if p != nil {
			fname := fmt.Sprintf("crash-%d.arc", i)
			if err := os.WriteFile(fname, doc, 0o644); err != nil {
				log.Fatal(err)
			}
			log.Printf("panic: %v (input written to %s)", p, fname)
			continue
		}
		if *verbose {
			fmt.Println(hex.Dump(doc))
			fmt.Println("err=", derr)
		}
	}
}
