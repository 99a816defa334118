package main

import (
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/res"
	"github.com/nwnkit/nwngo/pkg/resman"
)

type resmanGetCmd struct {
	Resref string   `arg:"" help:"Resref (with extension) to resolve, e.g. nw_chicken.utc."`
	Dir    []string `short:"d" help:"Extra local directories to overlay, highest precedence first."`
	Out    string   `short:"o" help:"Write the resolved bytes here instead of a summary."`
	NoUser bool     `help:"Skip the user-directory override stack."`
}

func (c *resmanGetCmd) Run() error {
	var overlays []res.Container
	for _, d := range c.Dir {
		dir, err := res.Open(d, false)
		if err != nil {
			return err
		}
		overlays = append(overlays, dir)
	}

	rm, err := resman.Create(overlays, !c.NoUser)
	if err != nil {
		return err
	}

	data, ok, err := rm.Get(c.Resref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("resref %q not found in %d containers", c.Resref, rm.Len())
	}
	if c.Out != "" {
		return os.WriteFile(c.Out, data, 0o644)
	}
	fmt.Printf("%s: %d bytes\n", c.Resref, len(data))
	return nil
}
