package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/eringen/insite"
	"github.com/eringen/insite/analytics"
)

var errAppUsage = errors.New("usage: insite app add <name> <url> | insite app list")

func runApp(args []string) error {
	if len(args) == 0 {
		return errAppUsage
	}
	cfg, err := insite.LoadConfig()
	if err != nil {
		return err
	}
	store, err := analytics.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return appCommand(context.Background(), store, args, os.Stdout)
}

func appCommand(ctx context.Context, store *analytics.Store, args []string, out io.Writer) error {
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return errAppUsage
		}
		app, err := store.CreateApplication(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Registered %s (id %d)\n", app.Name, app.ID)
		fmt.Fprintf(out, "applicationUrl:   %s\n", app.URL)
		fmt.Fprintf(out, "applicationToken: %s\n", app.Token)
		return nil
	case "list":
		apps, err := store.ListApplications(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tURL\tTOKEN")
		for _, app := range apps {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", app.ID, app.Name, app.URL, app.Token)
		}
		return tw.Flush()
	default:
		return errAppUsage
	}
}
