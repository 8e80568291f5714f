package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/ddl"
	"inkwell/internal/models"
	"inkwell/internal/repository/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "inkctl",
	Short: "Inkwell admin CLI",
	Long: `inkctl inspects an inkwell database directly: projects, the
waiting-area records accumulated by extraction, and DDL export of the
collected table schemas.`,
}

var jsonOutput bool

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(statesCmd())
	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(ddlCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withRepos connects to the configured database and hands the
// repositories to fn.
func withRepos(ctx context.Context, fn func(ctx context.Context, repos *postgres.RepositoryConfig) error) error {
	_ = godotenv.Load()
	cfg := config.Load()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
	})
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func projectsCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(cmd.Context(), func(ctx context.Context, repos *postgres.RepositoryConfig) error {
				projects, err := postgres.NewProjectRepository(repos).List(ctx, userID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Template", "Step", "Updated"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Name, p.TemplateID, p.CurrentStep, p.UpdatedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev-user", "owning user id")
	return cmd
}

func statesCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "states",
		Short: "List a project's waiting-area states",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			return withRepos(cmd.Context(), func(ctx context.Context, repos *postgres.RepositoryConfig) error {
				states, err := postgres.NewWaitAreaRepository(repos).ListStates(ctx, projectID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(states)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Values", "Description"})
				for _, s := range states {
					tw.AppendRow(table.Row{s.ID, s.Name, strings.Join(s.Values, "、"), s.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func tablesCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List a project's waiting-area table schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			return withRepos(cmd.Context(), func(ctx context.Context, repos *postgres.RepositoryConfig) error {
				records, err := postgres.NewWaitAreaRepository(repos).ListTables(ctx, projectID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(records)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Fields", "Description"})
				for _, t := range records {
					names := make([]string, len(t.Fields))
					for i, f := range t.Fields {
						names[i] = f.Name
					}
					tw.AppendRow(table.Row{t.ID, t.Name, strings.Join(names, ", "), t.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func ddlCmd() *cobra.Command {
	var projectID, tableID, dialectName string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Export waiting-area table schemas as CREATE TABLE SQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			dialect, err := ddl.ParseDialect(dialectName)
			if err != nil {
				return err
			}
			return withRepos(cmd.Context(), func(ctx context.Context, repos *postgres.RepositoryConfig) error {
				waitRepo := postgres.NewWaitAreaRepository(repos)

				var records []models.TableRecord
				if tableID != "" {
					record, err := waitRepo.GetTable(ctx, projectID, tableID)
					if err != nil {
						return err
					}
					records = []models.TableRecord{*record}
				} else {
					records, err = waitRepo.ListTables(ctx, projectID)
					if err != nil {
						return err
					}
				}

				fmt.Println(ddl.GenerateAll(records, dialect))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&tableID, "table", "", "export a single table record")
	cmd.Flags().StringVar(&dialectName, "dialect", "postgresql", "postgresql, mysql or oracle")
	return cmd
}

func tokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			token, err := auth.IssueToken(cfg.JWTSecret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev-user", "subject user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
