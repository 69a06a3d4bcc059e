package cli

import (
	"context"
	"fmt"
	"strings"
)

// Settings shows the preferences, or changes one:
//
//	settings darkmode on|off
//	settings autoclassify on|off
func (a *App) Settings(ctx context.Context, args []string) error {
	const text = "settings [darkmode|autoclassify on|off]"

	if len(args) == 0 {
		dark, err := a.prefs.DarkMode(ctx)
		if err != nil {
			return err
		}
		auto, err := a.prefs.AutoClassify(ctx)
		if err != nil {
			return err
		}
		p := newPalette(dark)
		fmt.Fprintf(a.out, "%s %s\n", p.label.Render("darkmode:    "), onOff(dark))
		fmt.Fprintf(a.out, "%s %s\n", p.label.Render("autoclassify:"), onOff(auto))
		return nil
	}

	if len(args) != 2 {
		return usage(text)
	}

	var v bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "yes":
		v = true
	case "off", "false", "no":
	default:
		return usage(text)
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "darkmode":
		err = a.prefs.SetDarkMode(ctx, v)
	case "autoclassify":
		err = a.prefs.SetAutoClassify(ctx, v)
	default:
		return usage(text)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s is %s\n", strings.ToLower(args[0]), onOff(v))
	return nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
