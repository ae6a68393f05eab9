package cmd

import (
	"fmt"
	"strings"

	tbd "github.com/appsworld/go-tbd"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	colorHeader = color.New(color.Bold, color.FgHiBlue).SprintFunc()
	colorField  = color.New(color.FgHiCyan).SprintFunc()
	colorWarn   = color.New(color.FgYellow).SprintFunc()
)

func init() {
	rootCmd.AddCommand(infoCmd)
	addParseFlags(infoCmd)
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:     "info <MACHO>...",
	Aliases: []string{"i"},
	Short:   "Summarize the stub metadata of one or more thin Mach-O dylibs",
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
		fmt.Print(formatInfo(info))
		return nil
	},
}

func formatInfo(info *tbd.Info) string {
	var sb strings.Builder
	field := func(name string, val any) {
		fmt.Fprintf(&sb, "  %s %v\n", colorField(name+":"), val)
	}

	fmt.Fprintln(&sb, colorHeader(info.InstallName))
	var targets []string
	for _, t := range info.Targets {
		targets = append(targets, fmt.Sprintf("%s (min %s)", t, t.MinOS))
	}
	field("targets", strings.Join(targets, ", "))
	for _, u := range info.UUIDs {
		field("uuid", fmt.Sprintf("%s %s", u.Arch, u.UUID))
	}
	field("current-version", info.CurrentVersion)
	field("compatibility-version", info.CompatVersion)
	if info.ParentUmbrella != "" {
		field("parent-umbrella", info.ParentUmbrella)
	}
	if info.SwiftVersion != 0 {
		field("swift-abi-version", info.SwiftVersion)
	}
	field("objc-constraint", info.ObjCConstraint)
	if info.Flags.FlatNamespace {
		fmt.Fprintf(&sb, "  %s\n", colorWarn("flat namespace"))
	}
	if info.Flags.NotAppExtensionSafe {
		fmt.Fprintf(&sb, "  %s\n", colorWarn("not app extension safe"))
	}

	lists := []struct {
		name string
		list []tbd.TaggedString
	}{
		{"reexports", info.Reexports},
		{"dependencies", info.Dependencies},
		{"allowable-clients", info.Clients},
		{"rpaths", info.Rpaths},
	}
	for _, l := range lists {
		if len(l.list) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %s\n", colorField(l.name+":"))
		for _, ts := range l.list {
			fmt.Fprintf(&sb, "    %s [%s]\n", ts.Value, strings.Join(info.ArchNames(ts.Archs), ", "))
		}
	}

	counts := make(map[tbd.SymbolKind]int)
	for _, s := range info.Symbols.Symbols() {
		counts[s.Kind]++
	}
	for k := tbd.KindRegular; k <= tbd.KindObjCIvar; k++ {
		if counts[k] > 0 {
			field(k.String(), counts[k])
		}
	}
	return sb.String()
}
