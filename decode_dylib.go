package tbd

import (
	"github.com/appsworld/go-tbd/types"
)

func (d *decoder) identification() (Outcome, error) {
	var dc types.DylibCmd
	if err := d.read(&dc, types.DylibCmdSize); err != nil {
		return Skipped, err
	}
	if d.s.Flags.Identification {
		return d.soft("duplicate", nil)
	}
	name, err := d.cstring(dc.Name, types.DylibCmdSize, "install name")
	if err != nil {
		return Skipped, err
	}
	if name == "" {
		return d.soft("install name", "")
	}

	// An earlier slice already identified the image.
	if d.info.InstallName != "" {
		if name != d.info.InstallName {
			return d.conflict("install name", name)
		}
		if dc.CurrentVersion != d.info.CurrentVersion {
			return d.conflict("current version", dc.CurrentVersion)
		}
		if dc.CompatVersion != d.info.CompatVersion {
			return d.conflict("compatibility version", dc.CompatVersion)
		}
		d.s.Flags.Identification = true
		return Decoded, nil
	}

	d.info.InstallName = name
	d.info.CurrentVersion = dc.CurrentVersion
	d.info.CompatVersion = dc.CompatVersion
	d.s.Flags.Identification = true
	return Decoded, nil
}

// conflict rejects a value that disagrees with an earlier slice in strict
// mode. In lenient mode the earlier value is kept.
func (d *decoder) conflict(field string, val any) (Outcome, error) {
	if d.opts.Strict {
		return Skipped, d.fail(field, val, ErrConflictingIdentification)
	}
	return Skipped, nil
}

// dylibPath decodes the path of a dylib_command.
func (d *decoder) dylibPath(field string) (string, error) {
	var dc types.DylibCmd
	if err := d.read(&dc, types.DylibCmdSize); err != nil {
		return "", err
	}
	return d.cstring(dc.Name, types.DylibCmdSize, field)
}

// tagged adds a path-like string to list, rejecting empty values in strict mode.
func (d *decoder) tagged(list *[]TaggedString, v, field string) (Outcome, error) {
	if v == "" {
		return d.soft(field, "")
	}
	*list = addTagged(*list, v, d.s.Bit())
	return Decoded, nil
}

func (d *decoder) reexport() (Outcome, error) {
	path, err := d.dylibPath("reexport")
	if err != nil {
		return Skipped, err
	}
	return d.tagged(&d.info.Reexports, path, "reexport")
}

func (d *decoder) dependency() (Outcome, error) {
	path, err := d.dylibPath("dylib")
	if err != nil {
		return Skipped, err
	}
	return d.tagged(&d.info.Dependencies, path, "dylib")
}

func (d *decoder) subClient() (Outcome, error) {
	var sc types.SubClientCmd
	if err := d.read(&sc, types.SubClientCmdSize); err != nil {
		return Skipped, err
	}
	client, err := d.cstring(sc.Client, types.SubClientCmdSize, "client")
	if err != nil {
		return Skipped, err
	}
	return d.tagged(&d.info.Clients, client, "client")
}

func (d *decoder) rpath() (Outcome, error) {
	var rc types.RpathCmd
	if err := d.read(&rc, types.RpathCmdSize); err != nil {
		return Skipped, err
	}
	path, err := d.cstring(rc.Path, types.RpathCmdSize, "path")
	if err != nil {
		return Skipped, err
	}
	return d.tagged(&d.info.Rpaths, path, "path")
}

func (d *decoder) subFramework() (Outcome, error) {
	var sf types.SubFrameworkCmd
	if err := d.read(&sf, types.SubFrameworkCmdSize); err != nil {
		return Skipped, err
	}
	umbrella, err := d.cstring(sf.Framework, types.SubFrameworkCmdSize, "umbrella")
	if err != nil {
		return Skipped, err
	}
	if umbrella == "" {
		return d.soft("umbrella", "")
	}
	switch d.info.ParentUmbrella {
	case "":
		d.info.ParentUmbrella = umbrella
		return Decoded, nil
	case umbrella:
		return Skipped, nil
	}
	return d.conflict("umbrella", umbrella)
}
