package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// PrintCmd implements the 'print' command.
type PrintCmd struct {
	Fragment string `arg:"" optional:"" enum:"body,head" default:"body" help:"Fragment to print (body|head)"`
}

func (p *PrintCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	return RunPrint(g.out(), cfg, p.Fragment)
}

// RunPrint renders the components every registered hook adds for the given
// fragment, one element per line.
func RunPrint(w io.Writer, cfg *config.Config, fragment string) error {
	registry, err := NewRegistry(cfg)
	if err != nil {
		return err
	}

	var components []ssr.Component
	switch fragment {
	case "body", "":
		components, err = pipeline.New(registry).PreBodyComponents("/")
	case "head":
		components, err = pipeline.New(registry).HeadComponents("/")
	default:
		return ferrors.ValidationError("unknown fragment").WithContext("fragment", fragment).Build()
	}
	if err != nil {
		return err
	}

	for _, c := range components {
		out, err := c.Render()
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRender, "render component").
				WithContext("key", c.Key).Build()
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output").Build()
		}
	}
	return nil
}
