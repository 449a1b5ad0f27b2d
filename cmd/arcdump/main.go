// arcdump pretty-prints archive documents read from files or stdin.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/graphstash/archive"
)

func process(d *archive.Decoder, fname string, b []byte, headerOnly bool) {
	if headerOnly {
		dumpHeader(fname, b)
		return
	}
	v, err := d.Unmarshal(b)
	if err != nil {
		log.Fatalf("error processing %s: %s", fname, err)
	}
	spew.Dump(v)
}

// dumpHeader prints the document header and the header of the root object.
// Compressed bodies are not inflated.
func dumpHeader(fname string, b []byte) {
	const docHeader = 13
	if len(b) < docHeader {
		log.Fatalf("error processing %s: %s", fname, archive.ErrBadHeader)
	}
	fmt.Printf("%s: doctype %d version %d fingerprint %#016x\n",
		fname, b[4]>>4, b[4]&0x0f, binary.LittleEndian.Uint64(b[5:docHeader]))
	if b[4]>>4 != 0 {
		return
	}

	m := archive.NewManager()
	r, err := m.StartRead(archive.NewBuffer(b[docHeader:]))
	if err != nil {
		log.Fatal(err)
	}
	defer r.FinishRead()
	h, err := r.ReadHeader()
	if err != nil {
		log.Fatalf("error processing %s: %s", fname, err)
	}
	spew.Dump(h)
}

func main() {
	flags := pflag.NewFlagSet("arcdump", pflag.ExitOnError)
	headerOnly := flags.Bool("header", false, "print document and root object headers only")
	ignoreFingerprint := flags.Bool("ignore-fingerprint", true, "decode documents written against another registry")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	d := archive.NewDecoder(archive.NewManager())
	d.IgnoreFingerprint = *ignoreFingerprint

	if flags.NArg() == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		process(d, "stdin", b, *headerOnly)
		return
	}

	for _, arg := range flags.Args() {
		b, err := os.ReadFile(arg)
		if err != nil {
			log.Fatal(err)
		}
		process(d, arg, b, *headerOnly)
	}
}
