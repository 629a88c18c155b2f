package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"ctph/internal/config"
	"ctph/internal/fuzzy"
	"ctph/internal/index"
	"ctph/internal/scan"
	"ctph/internal/source"
)

type options struct {
	recursive    bool
	knownFile    string
	compareKnown bool
	diff         bool
	threshold    int
	s3           string
	workers      int
	server       string

	config *config.Config
	logger logrus.FieldLogger
}

// run executes one invocation of the tool, writing results to out. It
// reports whether any input could not be hashed.
func run(ctx context.Context, opts options, args []string, out io.Writer) (bool, error) {
	if opts.config == nil {
		opts.config = config.Default()
	}
	if opts.logger == nil {
		opts.logger = logrus.StandardLogger()
	}
	if opts.threshold < 0 || opts.threshold > 100 {
		return false, fmt.Errorf("threshold %d out of range 0-100", opts.threshold)
	}
	if opts.knownFile != "" && opts.server != "" {
		return false, fmt.Errorf("-m and -server are mutually exclusive")
	}

	if opts.compareKnown {
		var sigs []fuzzy.Signature
		for _, name := range args {
			known, err := readKnownFile(name)
			if err != nil {
				return false, err
			}
			sigs = append(sigs, known...)
		}
		return false, matchEachOther(sigs, opts.threshold, out)
	}

	sigs, failed, err := hashAll(ctx, opts, args)
	if err != nil {
		return failed, err
	}

	switch {
	case opts.knownFile != "":
		known, err := readKnownFile(opts.knownFile)
		if err != nil {
			return failed, err
		}
		idx := index.NewInMemoryIndex()
		for _, sig := range known {
			if _, err := idx.Add(sig); err != nil {
				return failed, err
			}
		}
		return failed, matchAgainst(idx, sigs, opts.threshold, out)
	case opts.server != "":
		return failed, matchAgainst(index.NewClient(opts.server, nil), sigs, opts.threshold, out)
	case opts.diff:
		return failed, matchEachOther(sigs, opts.threshold, out)
	default:
		return failed, fuzzy.WriteKnown(out, sigs)
	}
}

func readKnownFile(name string) ([]fuzzy.Signature, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fuzzy.ErrIO, err)
	}
	defer f.Close()

	sigs, err := fuzzy.ReadKnown(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return sigs, nil
}

func sources(ctx context.Context, opts options, args []string) ([]source.Source, error) {
	if opts.s3 != "" {
		bucket, prefix, err := source.ParseS3Location(opts.s3)
		if err != nil {
			return nil, err
		}
		client, err := source.NewS3Client(ctx, opts.config.S3.Options())
		if err != nil {
			return nil, err
		}
		return []source.Source{source.NewS3(client, bucket, prefix)}, nil
	}

	recursive := opts.recursive || opts.config.Scan.Recursive
	var srcs []source.Source
	for _, arg := range args {
		src, err := source.NewOSFileSystem(arg, recursive)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// hashAll hashes every input in argument order. Inputs that fail are
// logged and skipped.
func hashAll(ctx context.Context, opts options, args []string) ([]fuzzy.Signature, bool, error) {
	srcs, err := sources(ctx, opts, args)
	if err != nil {
		return nil, false, err
	}

	scanOpts := opts.config.Scan.Options(opts.logger)
	if opts.workers > 0 {
		scanOpts.Workers = opts.workers
	}

	var all []fuzzy.Signature
	failed := false
	for i, src := range srcs {
		sigs, failures, err := scan.Collect(ctx, src, scanOpts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, true, err
			}
			name := opts.s3
			if name == "" {
				name = args[i]
			}
			opts.logger.WithError(err).WithField("input", name).Warn("failed to read input")
			failed = true
			continue
		}
		for _, r := range failures {
			opts.logger.WithError(r.Err).WithField("input", r.Object.Name).Warn("failed to hash input")
			failed = true
		}
		all = append(all, sigs...)
	}
	return all, failed, nil
}

func displayName(text string) string {
	sig, err := fuzzy.Parse(text)
	if err != nil || sig.Label == "" {
		return text
	}
	return sig.Label
}

func writeMatch(out io.Writer, sig fuzzy.Signature, m index.Match) {
	name := sig.Label
	if name == "" {
		name = sig.String()
	}
	fmt.Fprintf(out, "%s matches %s (%d)\n", name, displayName(m.Signature), m.Score)
}

// matchAgainst reports, for each signature, the members of idx scoring
// above threshold.
func matchAgainst(idx index.Index, sigs []fuzzy.Signature, threshold int, out io.Writer) error {
	if threshold >= 100 {
		return nil
	}
	for _, sig := range sigs {
		matches, err := idx.Match(sig, threshold+1)
		if err != nil {
			return err
		}
		for _, m := range matches {
			writeMatch(out, sig, m)
		}
	}
	return nil
}

// matchEachOther reports every pair of signatures scoring above threshold
// once, each signature against those before it.
func matchEachOther(sigs []fuzzy.Signature, threshold int, out io.Writer) error {
	idx := index.NewInMemoryIndex()
	for _, sig := range sigs {
		matches, err := idx.Match(sig, threshold+1)
		if err != nil {
			return err
		}
		for _, m := range matches {
			writeMatch(out, sig, m)
		}
		if _, err := idx.Add(sig); err != nil {
			return err
		}
	}
	return nil
}
