package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/render"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	resolve  resolveOpts
	format   string // dot or svg; defaults to the output extension
	detailed bool   // add UUIDs and edge specs
}

// graphCommand creates the graph command for rendering a resolution.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the resolved dependency graph as DOT or SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			res, err := c.resolve(cmd.Context(), &opts.resolve)
			if err != nil {
				return err
			}

			dot := render.ToDOT(res.g, res.sol, render.Options{Detailed: opts.detailed})
			data := []byte(dot)
			if format == formatSVG {
				if data, err = render.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			}
			if opts.resolve.output == "" {
				_, err := c.Out.Write(data)
				return err
			}
			if err := os.WriteFile(opts.resolve.output, data, 0o644); err != nil {
				return err
			}
			printSuccess(c.Out, "Rendered %d packages", len(res.sol))
			printFile(c.Out, opts.resolve.output)
			return nil
		},
	}

	opts.resolve.register(cmd, "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot, svg (default: from --output, else dot)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show UUIDs and version specs")
	return cmd
}

// outputFormat picks the format from --format or the output extension.
func (o *graphOpts) outputFormat() (string, error) {
	format := o.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(o.resolve.output), ".")
		if format == "" || format == "gv" {
			format = formatDOT
		}
	}
	switch format {
	case formatDOT, formatSVG:
		return format, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid format: %s (must be 'dot' or 'svg')", format)
}
