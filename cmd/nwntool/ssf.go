package main

import (
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/ssf"
)

type ssfDumpCmd struct {
	Path string `arg:"" help:"Path to a .ssf sound-set file."`
}

func (c *ssfDumpCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := ssf.Read(f)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Unset() {
			fmt.Printf("  [%2d] %-16s %-16s unset\n", i, ssf.Slot(i), e.Resref)
			continue
		}
		fmt.Printf("  [%2d] %-16s %-16s strref=%d\n", i, ssf.Slot(i), e.Resref, e.StrRef)
	}
	return nil
}
