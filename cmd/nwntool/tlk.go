package main

import (
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
	"github.com/nwnkit/nwngo/pkg/tlk"
)

type tlkDumpCmd struct {
	Path     string `arg:"" help:"Path to a .tlk talk table."`
	Codepage int    `default:"1252"`
	Limit    int    `default:"50" help:"Maximum number of entries to print, 0 for all."`
}

func (c *tlkDumpCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	lang, entries, err := tlk.Read(f, nwtypes.CodePage(c.Codepage), tlk.DefaultMaxEntries)
	if err != nil {
		return err
	}
	fmt.Printf("language: %v  entries: %d\n", lang, len(entries))
	limit := len(entries)
	if c.Limit > 0 && c.Limit < limit {
		limit = c.Limit
	}
	for i := 0; i < limit; i++ {
		fmt.Printf("  [%d] %q\n", i, entries[i].Text)
	}
	return nil
}
