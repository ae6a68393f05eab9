package cmd

import (
	"os"

	"github.com/apex/log"
	tbd "github.com/appsworld/go-tbd"
	"github.com/appsworld/go-tbd/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// addParseFlags registers the flags shared by every command that parses inputs.
func addParseFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "Fail on any malformed load command")
	cmd.Flags().Bool("allow-private", false, "Keep private-extern symbols")
	cmd.Flags().Bool("copy-strings", false, "Copy strings out of the input buffers")
	cmd.Flags().Bool("fail-file", false, "Reject every input after a platform conflict")
	cmd.Flags().String("install-name", "", "Replace the install name")
	cmd.Flags().String("current-version", "", "Replace the current version (X.Y.Z)")
	cmd.Flags().String("compat-version", "", "Replace the compatibility version (X.Y.Z)")
	cmd.Flags().String("platform", "", "Replace the platform (e.g. macos, ios-simulator)")
}

// bindParseFlags binds the parse flags of cmd under the shared parse.* keys.
// Called from PreRun so only the running command owns the keys.
func bindParseFlags(cmd *cobra.Command) {
	for _, name := range []string{
		"strict", "allow-private", "copy-strings", "fail-file",
		"install-name", "current-version", "compat-version", "platform",
	} {
		viper.BindPFlag("parse."+name, cmd.Flags().Lookup(name))
	}
}

// parseConfig builds a tbd.Config from the bound parse.* settings.
func parseConfig() (tbd.Config, error) {
	cfg := tbd.Config{
		Options: tbd.Options{
			Strict:      viper.GetBool("parse.strict"),
			CopyStrings: viper.GetBool("parse.copy-strings"),
		},
		AllowPrivate:       viper.GetBool("parse.allow-private"),
		ReplaceInstallName: viper.GetString("parse.install-name"),
	}
	if viper.GetBool("parse.fail-file") {
		cfg.PlatformConflict = tbd.FailFile
	}
	if s := viper.GetString("parse.current-version"); s != "" {
		v, err := types.ParseVersion(s)
		if err != nil {
			return cfg, errors.Wrap(err, "--current-version")
		}
		cfg.ReplaceCurrentVersion = v
	}
	if s := viper.GetString("parse.compat-version"); s != "" {
		v, err := types.ParseVersion(s)
		if err != nil {
			return cfg, errors.Wrap(err, "--compat-version")
		}
		cfg.ReplaceCompatVersion = v
	}
	if s := viper.GetString("parse.platform"); s != "" {
		p, ok := types.ParsePlatform(s)
		if !ok {
			return cfg, errors.Errorf("--platform: unknown platform %q", s)
		}
		cfg.ReplacePlatform = p
	}
	return cfg, nil
}

func parseFile(path string, cfg tbd.Config) (*tbd.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	info := tbd.NewInfo()
	if _, err := tbd.ParseSlice(f, fi.Size(), info, cfg); err != nil {
		return nil, err
	}
	return info, nil
}

// parseInputs parses each thin Mach-O in paths concurrently and folds the
// results together in input order.
func parseInputs(paths []string, cfg tbd.Config) (*tbd.Info, error) {
	parsed := make([]*tbd.Info, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	for idx, path := range paths {
		idx, path := idx, path
		g.Go(func() error {
			log.WithField("file", path).Debug("Parsing")
			info, err := parseFile(path, cfg)
			if err != nil {
				err = errors.Wrapf(err, "failed to parse %s", path)
				if cfg.Strict {
					return err
				}
				errs[idx] = err
				return nil
			}
			parsed[idx] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	info := tbd.NewInfo()
	for idx, other := range parsed {
		if errs[idx] != nil {
			log.Warn(errs[idx].Error())
			continue
		}
		if err := info.Fold(other, cfg); err != nil {
			err = errors.Wrapf(err, "failed to merge %s", paths[idx])
			if cfg.Strict || info.Err() != nil {
				return nil, err
			}
			log.Warn(err.Error())
		}
	}
	if len(info.Archs) == 0 {
		return nil, errors.New("no input could be parsed")
	}
	info.ApplyReplacements(cfg)
	return info, nil
}
