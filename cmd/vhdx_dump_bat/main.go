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

	fmt.Printf("BAT entries: (%s)\n", humanize.Comma(int64(len(c.Bat))))
	fmt.Printf("\n")

	for i, entry := range c.Bat {
		if entry.State == vhdx.BatStateNotPresent {
			continue
		}

		fmt.Printf("(%6d): %s\n", i, entry)
	}
}
