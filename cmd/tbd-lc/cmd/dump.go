package cmd

import (
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	addParseFlags(dumpCmd)
}

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:     "dump <MACHO>...",
	Aliases: []string{"d"},
	Short:   "Dump the merged stub description of one or more thin Mach-O dylibs as YAML",
	Args:    cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		bindParseFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := parseConfig()
		if err != nil {
			return err
		}
		info, err := parseInputs(args, cfg)
		if err != nil {
			return err
		}
		log.WithField("symbols", info.Symbols.Len()).Debug("Parsed")

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(describe(info))
	},
}
