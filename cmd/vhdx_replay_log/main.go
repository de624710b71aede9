package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-vhdx"
)

type rootParameters struct {
	Filepath string `short:"f" long:"filepath" description:"File-path of VHDX container" required:"true"`
}

var (
	rootArguments = new(rootParameters)
)

// This driver only discovers and prints the active replay sequence. Writing
// its entries back into the backing file (log *application*) is out of
// scope.
func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	f, err := os.Open(rootArguments.Filepath)
	log.PanicIf(err)

	defer f.Close()

	fi, err := f.Stat()
	log.PanicIf(err)

	c, err := vhdx.Open(f, fi.Size())
	log.PanicIf(err)

	seq := c.ActiveLogSequence

	if len(seq.Entries) == 0 {
		fmt.Printf("No active log sequence; nothing to replay.\n")
		return
	}

	fmt.Printf("Active log sequence\n")
	fmt.Printf("====================\n")
	fmt.Printf("Anchor: (%s)\n", humanize.Comma(int64(seq.Anchor)))
	fmt.Printf("Entries: (%d)\n", len(seq.Entries))
	fmt.Printf("\n")

	for _, entry := range seq.Entries {
		fmt.Printf("Sequence (%s): offset (%s), (%d) descriptor(s)\n", humanize.Comma(int64(entry.Header.SequenceNumber)), humanize.Bytes(uint64(entry.Offset)), len(entry.Descriptors))
	}
}
