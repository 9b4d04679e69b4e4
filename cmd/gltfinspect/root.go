package main

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	rootDir    string
	logLevel   string
	profile    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "gltfinspect",
		Short:        "Load glTF 2.0 and GLB assets and report what they contain",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML loader configuration file")
	flags.StringVar(&opts.rootDir, "root", "", "directory local URLs are resolved against")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.profile, "profile", false, "log per-stage load timings")

	cmd.AddCommand(newInspectCommand(opts), newServeCommand(opts))
	return cmd
}

// config merges the configuration file with the command line flags. Flags win.
func (o *rootOptions) config() (*loader.LoaderConfig, error) {
	cfg := loader.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = loader.LoadConfig(o.configPath); err != nil {
			return nil, errors.Wrap(err, "failed to read configuration")
		}
	}
	if o.rootDir != "" {
		cfg.RootDir = o.rootDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.profile {
		cfg.Profile = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func (o *rootOptions) newLoader() (loader.Loader, *loader.LoaderConfig, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	return loader.NewLoader(loader.BackendTypeGLTF, loader.WithConfig(cfg)), cfg, nil
}
