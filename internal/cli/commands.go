package cli

import (
	"eats/internal/core"
	"eats/internal/eatsml"
	"eats/pkg/domain"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newImportCommand(withApp appRunner) *cobra.Command {
	var username, description string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an EATSML document (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			user, err := a.user(ctx, username)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if description == "" {
				description = args[0]
			}
			ri, err := eatsml.ImportAndRegister(ctx, a.svc, user, description, data, a.codec...)
			if err != nil {
				return err
			}
			a.logger.Info("document imported", "import", ri.ID, "user", user.Username)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ri.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&username, "user", "", "acting user")
	cmd.Flags().StringVar(&description, "description", "", "description stored with the import (default: the file name)")
	return cmd
}

func newExportCommand(withApp appRunner) *cobra.Command {
	var (
		username    string
		authorityID int64
		annotated   bool
		full        bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entities as EATSML",
		Long: `Export every entity, or with --authority only the entities an authority's
records assert to exist, together with the vocabulary they use.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			user, err := a.user(ctx, username)
			if err != nil {
				return err
			}
			opts := eatsml.ExportOptions{Annotated: annotated, FullDetails: full, Profile: &user.Profile}
			data, err := eatsml.ExportAuthorityFrom(ctx, a.svc.Store(), domain.ID(authorityID), opts, a.codec...)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		}),
	}
	cmd.Flags().StringVar(&username, "user", "", "acting user")
	cmd.Flags().Int64Var(&authorityID, "authority", 0, "only export entities asserted by this authority")
	cmd.Flags().BoolVar(&annotated, "annotated", false, "mark the user's preferred names and vocabulary")
	cmd.Flags().BoolVar(&full, "full", false, "include the variant forms of every name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newExportInfrastructureCommand(withApp appRunner) *cobra.Command {
	var (
		username  string
		limited   bool
		annotated bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "export-infrastructure",
		Short: "Export the vocabulary as EATSML",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			user, err := a.user(ctx, username)
			if err != nil {
				return err
			}
			opts := eatsml.InfraOptions{Limited: limited, Annotated: annotated, Profile: &user.Profile}
			data, err := eatsml.ExportInfrastructureFrom(ctx, a.svc.Store(), opts, a.codec...)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		}),
	}
	cmd.Flags().StringVar(&username, "user", "", "acting user")
	cmd.Flags().BoolVar(&limited, "limited", false, "only the authorities the user may edit")
	cmd.Flags().BoolVar(&annotated, "annotated", false, "mark the user's preferred vocabulary")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newImportsCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Inspect registered imports",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List registered imports",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			imports, err := a.svc.ListImports(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tDATE\tIMPORTER\tDESCRIPTION")
			for _, ri := range imports {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", ri.ID, ri.ImportDate.Format(time.RFC3339), ri.ImporterID, ri.Description)
			}
			return tw.Flush()
		}),
	}
	var processed bool
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the raw or processed document of an import",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			which := core.ImportRaw
			if processed {
				which = core.ImportProcessed
			}
			data, err := a.svc.ImportDocumentBytes(cmd.Context(), args[0], which)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}
	show.Flags().BoolVar(&processed, "processed", false, "print the processed document")
	cmd.AddCommand(list, show)
	return cmd
}

func newUsersCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	var (
		superuser bool
		editable  []int64
		profile   domain.UserProfile
		prefs     = map[string]*domain.ID{
			"authority":   &profile.AuthorityID,
			"language":    &profile.LanguageID,
			"script":      &profile.ScriptID,
			"calendar":    &profile.CalendarID,
			"date-type":   &profile.DateTypeID,
			"date-period": &profile.DatePeriodID,
			"name-type":   &profile.NameTypeID,
		}
		values = make(map[string]*int64, len(prefs))
	)
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			for _, id := range editable {
				profile.EditableAuthorityIDs = append(profile.EditableAuthorityIDs, domain.ID(id))
			}
			for name, target := range prefs {
				*target = domain.ID(*values[name])
			}
			user, _, err := a.svc.CreateUser(cmd.Context(), domain.User{
				Username:    args[0],
				IsSuperuser: superuser,
				Profile:     profile,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return err
		}),
	}
	add.Flags().BoolVar(&superuser, "superuser", false, "grant every permission")
	add.Flags().Int64SliceVar(&editable, "editable", nil, "ids of the authorities the user may edit")
	for name := range prefs {
		values[name] = add.Flags().Int64(name, 0, "preferred "+name+" id")
	}
	cmd.AddCommand(add)
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
