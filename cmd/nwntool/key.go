package main

import (
	"fmt"

	"github.com/nwnkit/nwngo/pkg/keybif"
)

type keyListCmd struct {
	KeyPath string `arg:"" help:"Path to a .key file."`
	BifDir  string `arg:"" optional:"" help:"Directory holding the referenced .bif files; defaults to the key file's directory."`
}

func (c *keyListCmd) Run() error {
	bifDir := c.BifDir
	if bifDir == "" {
		bifDir = dirOf(c.KeyPath)
	}
	r, err := keybif.Open(c.KeyPath, bifDir)
	if err != nil {
		return err
	}
	defer r.Close()

	for name, e := range r.FileMap() {
		fmt.Printf("  %-20s type=%-5d bif=%d res=%d\n", name, e.ResType, e.BifIndex(), e.ResIndex())
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
