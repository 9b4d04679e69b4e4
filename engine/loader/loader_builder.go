package loader

import (
	"github.com/sirupsen/logrus"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFetcher is an option builder that sets the Fetcher used for asset files, external buffers and images.
//
// Parameters:
//   - f: the fetcher
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fetcher option to a loader
func WithFetcher(f Fetcher) LoaderBuilderOption {
	return func(l *loader) {
		l.fetcher = f
	}
}

// WithLogger is an option builder that sets the logger receiving load warnings and profiles.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger logrus.FieldLogger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithWideIndexSupport is an option builder that declares whether the rendering target accepts
// 32-bit indices. Without it, 32-bit index buffers are narrowed to 16 bits.
//
// Parameters:
//   - supported: true if 32-bit indices are supported
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithWideIndexSupport(supported bool) LoaderBuilderOption {
	return func(l *loader) {
		l.wideIndices = supported
	}
}

// WithFlipV is an option builder that selects when texture coordinate V values are flipped.
//
// Parameters:
//   - mode: FlipVAuto, FlipVAlways or FlipVNever
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithFlipV(mode FlipVMode) LoaderBuilderOption {
	return func(l *loader) {
		l.flipV = mode
	}
}

// WithMaxFetchWorkers is an option builder that bounds the number of concurrent resource fetches.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithMaxFetchWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxFetchWorkers = n
	}
}

// WithExtensionParser is an option builder that adds an extension parser to every load.
// The factory is called once per load so parser state never leaks between assets.
//
// Parameters:
//   - factory: creates the parser
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithExtensionParser(factory ExtensionParserFactory) LoaderBuilderOption {
	return func(l *loader) {
		l.parsers = append(l.parsers, factory)
	}
}

// WithProfiler is an option builder that enables per-stage load timing, logged at info level.
//
// Parameters:
//   - enabled: true to profile loads
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithProfiler(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.profile = enabled
	}
}

// WithConfig is an option builder that applies a LoaderConfig. Options given after it override
// the values it sets.
//
// Parameters:
//   - cfg: the configuration, usually from LoadConfig
//
// Returns:
//   - LoaderBuilderOption: a function that applies the configuration to a loader
func WithConfig(cfg *LoaderConfig) LoaderBuilderOption {
	return func(l *loader) {
		if cfg == nil {
			return
		}
		l.baseURL = cfg.BaseURL
		l.fetcher = &SchemeFetcher{
			HTTP:  NewHTTPFetcher(cfg.FetchTimeout),
			Local: NewFSFetcher(cfg.RootDir),
		}
		l.maxFetchWorkers = cfg.MaxFetchWorkers
		l.wideIndices = cfg.WideIndices
		l.flipV = cfg.FlipV
		l.profile = cfg.Profile

		if cfg.LogLevel != "" {
			if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
				logger := logrus.New()
				logger.SetLevel(level)
				l.logger = logger
			}
		}

		for _, name := range cfg.Extensions {
			if factory, ok := builtinExtensionParsers[name]; ok {
				l.parsers = append(l.parsers, factory)
			}
		}
	}
}
