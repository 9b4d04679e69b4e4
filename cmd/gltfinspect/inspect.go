package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type inspectOptions struct {
	output string
	dump   bool
	depth  int
}

func newInspectCommand(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <url>...",
		Short: "Load assets and print a summary of each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return errors.Errorf("unknown output format %q", opts.output)
			}
			l, _, err := root.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			for _, url := range args {
				asset, err := l.Load(cmd.Context(), url)
				if err != nil {
					return errors.Wrapf(err, "%s [%s]", url, loader.KindOf(err))
				}
				if opts.dump {
					fmt.Fprint(cmd.OutOrStdout(), newDumper(opts.depth).Sdump(asset))
					continue
				}
				if err := writeSummary(cmd.OutOrStdout(), asset.Summary(), opts.output); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "summary format: json or yaml")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "dump the asset graph instead of a summary")
	cmd.Flags().IntVar(&opts.depth, "depth", 3, "maximum nesting depth for --dump")
	return cmd
}

// newDumper returns a spew configuration that keeps dumps stable between runs.
func newDumper(depth int) *spew.ConfigState {
	cfg := spew.NewDefaultConfig()
	cfg.DisableCapacities = true
	cfg.DisablePointerAddresses = true
	cfg.DisableMethods = true
	cfg.SortKeys = true
	cfg.MaxDepth = depth
	return cfg
}

func writeSummary(w io.Writer, s loader.AssetSummary, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "failed to encode summary")
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal summary")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}
