package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/nwsync"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

type nwsyncDumpCmd struct {
	Path     string `arg:"" help:"Path to a NWSync manifest file."`
	Codepage int    `default:"1252"`
}

func (c *nwsyncDumpCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := nwsync.Read(f, nwtypes.CodePage(c.Codepage))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  %-20s %6d bytes  %s\n", e.ResRef, e.Size, hex.EncodeToString(e.SHA1[:]))
	}
	return nil
}
