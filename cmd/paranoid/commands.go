package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"paranoid/db"
	"paranoid/internal/app"
	"paranoid/internal/config"
	"paranoid/internal/core/id"
	"paranoid/internal/domain"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/schema"
)

type setupFunc func(cmd *cobra.Command) (*runtime, error)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Print the entity types with their tables, policies and relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tTABLE\tMARKER\tPOLICY\tRELATIONS")
			reg := schema.Registry()
			for _, def := range reg.List() {
				rels := make([]string, 0, len(def.Relations))
				for _, r := range def.Relations {
					rels = append(rels, fmt.Sprintf("%s -> %s.%s", r.Name, r.Dependent, r.ForeignKey))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					def.Name, def.Table, def.MarkerColumn(), def.Policy, strings.Join(rels, ", "))
			}
			return w.Flush()
		},
	}
}

func newInitSchemaCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create the tables in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if rt.cfg.Storage != config.StoragePostgres {
				return fmt.Errorf("init-schema requires PARANOID_STORAGE=%s", config.StoragePostgres)
			}
			return db.Apply(cmd.Context(), rt.pool.Pool)
		},
	}
}

func newDemoCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the soft-delete scenario and print what each read path sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			return runDemo(cmd.Context(), rt.app, cmd.OutOrStdout())
		},
	}
}

func visibilityFlag(cmd *cobra.Command, withDeleted *bool) {
	cmd.Flags().BoolVar(withDeleted, "with-deleted", false, "include soft-deleted records")
}

func visibility(withDeleted bool) domain.Visibility {
	if withDeleted {
		return domain.IncludeDeleted
	}
	return domain.VisibleOnly
}

func lookup(a *app.App, name string) (app.Entity, error) {
	e, ok := a.Entities()[name]
	if !ok {
		return app.Entity{}, fmt.Errorf("unknown type %q (known: %s)", name, strings.Join(a.EntityNames(), ", "))
	}
	return e, nil
}

func newListCmd(setup setupFunc) *cobra.Command {
	var (
		withDeleted bool
		orderBy     string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List records of a type as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			e, err := lookup(rt.app, args[0])
			if err != nil {
				return err
			}
			items, err := e.List(cmd.Context(), visibility(withDeleted), domain.ListFilter{OrderBy: orderBy, Limit: limit})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, it := range items {
				if err := enc.Encode(it); err != nil {
					return err
				}
			}
			return nil
		},
	}
	visibilityFlag(cmd, &withDeleted)
	cmd.Flags().StringVar(&orderBy, "order-by", "", "column to order by, prefix with - for descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records")
	return cmd
}

func newCountCmd(setup setupFunc) *cobra.Command {
	var withDeleted bool
	cmd := &cobra.Command{
		Use:   "count <type>",
		Short: "Count records of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			e, err := lookup(rt.app, args[0])
			if err != nil {
				return err
			}
			n, err := e.Count(cmd.Context(), visibility(withDeleted))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	visibilityFlag(cmd, &withDeleted)
	return cmd
}

func newDeleteCmd(setup setupFunc) *cobra.Command {
	return newMarkerCmd(setup, softdelete.OpDelete, "Soft-delete a record (cascading per policy)",
		func(e app.Entity) markerFunc { return e.Delete })
}

func newRestoreCmd(setup setupFunc) *cobra.Command {
	return newMarkerCmd(setup, softdelete.OpRestore, "Restore a soft-deleted record and what its cascade removed",
		func(e app.Entity) markerFunc { return e.Restore })
}

type markerFunc func(ctx context.Context, recordID id.ID) (softdelete.Result, error)

func newMarkerCmd(setup setupFunc, op, short string, pick func(app.Entity) markerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <type> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := id.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}

			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			e, err := lookup(rt.app, args[0])
			if err != nil {
				return err
			}
			res, err := pick(e)(cmd.Context(), recordID)
			if err != nil {
				return err
			}
			return printResult(cmd, op, res)
		},
	}
}

func printResult(cmd *cobra.Command, op string, res softdelete.Result) error {
	out := cmd.OutOrStdout()
	if res.NoOp {
		_, err := fmt.Fprintf(out, "%s %s: nothing to do\n", op, res.Root)
		return err
	}
	fmt.Fprintf(out, "%s %s\n", op, res.Root)
	for _, ref := range res.Cascaded {
		fmt.Fprintf(out, "  cascaded %s\n", ref)
	}
	return nil
}
