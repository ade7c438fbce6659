package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"okrhub/internal/app"
	"okrhub/internal/config"
	"okrhub/internal/db"
	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/middleware"
	"okrhub/internal/server"
	"okrhub/internal/workitems"
)

var rootCmd = &cobra.Command{
	Use:   "okr",
	Short: "OKR Hub CLI",
	Long: `OKR Hub keeps objectives, key results, areas and time frames for a project.
Core concepts:
- Area: a slice of the organisation that owns objectives.
- Time frame: a period such as a quarter. Objectives belong to exactly one; the set marks one as current.
- Objective: a goal with key results (KRs), an owner and linked work items.
- Key result status: Not Started, On Track, At Risk, Completed, Incomplete or Canceled.
- Action log: every intent and its outcome, view with 'okr log tail'.
Start with 'okr config init --project <name>' then 'okr init --area <name>'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("OKRHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("project", "", "project name (overrides config)")
	rootCmd.PersistentFlags().StringP("timeframe", "t", "", "displayed time frame id or name (defaults to the current one)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	for _, name := range []string{"workspace", "json", "actor-id", "project", "timeframe", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(areaCmd())
	rootCmd.AddCommand(timeFrameCmd())
	rootCmd.AddCommand(objectiveCmd())
	rootCmd.AddCommand(workItemCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var area, description, owner string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the first area and time frame set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.CreateFirstArea{Area: domain.Area{Name: area, Description: description, Owner: owner}})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "first area name")
	cmd.Flags().StringVar(&description, "description", "", "area description")
	cmd.Flags().StringVar(&owner, "owner", "", "area owner")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in okrhub.yml at the workspace root: project name and url, store driver, server and work item source.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default okrhub.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(viper.GetString("project"))
			if name == "" {
				return fmt.Errorf("--project required")
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"path": path})
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("project"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate okrhub.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Project metadata"}
	prj.AddCommand(&cobra.Command{
		Use:   "name",
		Short: "Print the project name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.GetProjectName{})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printAction(out)
				}
				fmt.Println(out.(middleware.GetProjectNameSucceed).ProjectName)
				return nil
			})
		},
	})
	return prj
}

func areaCmd() *cobra.Command {
	area := &cobra.Command{Use: "area", Short: "Manage areas"}
	area.AddCommand(areaListCmd())
	area.AddCommand(areaCreateCmd())
	area.AddCommand(areaEditCmd())
	area.AddCommand(areaRemoveCmd())
	return area
}

func areaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.GetAreas{})
				if err != nil {
					return err
				}
				areas := out.(middleware.GetAreasSucceed).Payload
				if viper.GetBool("json") {
					return printJSON(areas)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Owner", "Description"})
				for _, ar := range areas {
					tw.AppendRow(table.Row{ar.ID, ar.Name, ar.Owner, ar.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func areaCreateCmd() *cobra.Command {
	var name, description, owner string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create area",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.CreateArea{Data: domain.Area{Name: name, Description: description, Owner: owner}})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "area name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func areaEditCmd() *cobra.Command {
	var name, description, owner string
	cmd := &cobra.Command{
		Use:   "edit <area-id-or-name>",
		Short: "Update area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				target, err := findArea(ctx, a, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					target.Name = name
				}
				if cmd.Flags().Changed("description") {
					target.Description = description
				}
				if cmd.Flags().Changed("owner") {
					target.Owner = owner
				}
				out, err := execute(ctx, a, middleware.EditArea{Area: target})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "area name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	return cmd
}

func areaRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <area-id-or-name>",
		Short: "Remove area and its objectives in the displayed time frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				target, err := findArea(ctx, a, args[0])
				if err != nil {
					return err
				}
				out, err := execute(ctx, a, middleware.RemoveArea{ID: target.ID})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	return cmd
}

func timeFrameCmd() *cobra.Command {
	tf := &cobra.Command{Use: "timeframe", Short: "Manage time frames"}
	tf.AddCommand(timeFrameListCmd())
	tf.AddCommand(timeFrameAddCmd())
	tf.AddCommand(timeFrameUseCmd())
	return tf
}

func timeFrameListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List time frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.GetTimeFrames{})
				if err != nil {
					return err
				}
				set := out.(middleware.GetTimeFramesSucceed).Payload
				if viper.GetBool("json") {
					return printJSON(set)
				}
				if set == nil {
					fmt.Println("no time frames; run okr init --area <name>")
					return nil
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Order", "Current"})
				for _, t := range set.TimeFrames {
					current := ""
					if t.ID == set.CurrentTimeFrameID {
						current = "*"
					}
					tw.AppendRow(table.Row{t.ID, t.Name, t.Order, current})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func timeFrameAddCmd() *cobra.Command {
	var use bool
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a time frame to the set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				set, err := currentSet(ctx, a)
				if err != nil {
					return err
				}
				next, tf := set.AddTimeFrame(args[0])
				if use {
					next.CurrentTimeFrameID = tf.ID
				}
				out, err := executeIn(ctx, a, set.CurrentTimeFrameID, middleware.EditTimeFrame{Set: next})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().BoolVar(&use, "use", false, "make the new time frame current")
	return cmd
}

func timeFrameUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <time-frame-id-or-name>",
		Short: "Make a time frame current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				set, err := currentSet(ctx, a)
				if err != nil {
					return err
				}
				tf, ok := set.FindByName(args[0])
				if !ok {
					return fmt.Errorf("time frame %q not found", args[0])
				}
				displayed := set.CurrentTimeFrameID
				set.CurrentTimeFrameID = tf.ID
				out, err := executeIn(ctx, a, displayed, middleware.EditTimeFrame{Set: set})
				if err != nil {
					return err
				}
				if sw, ok := out.(middleware.UpdateCurrentTimeFrameSucceed); ok && !viper.GetBool("json") {
					fmt.Printf("current time frame: %s (%d objectives)\n", tf.Name, len(sw.Objectives))
					return nil
				}
				return printAction(out)
			})
		},
	}
	return cmd
}

func objectiveCmd() *cobra.Command {
	obj := &cobra.Command{Use: "objective", Short: "Manage objectives of the displayed time frame"}
	obj.AddCommand(objectiveListCmd())
	obj.AddCommand(objectiveCreateCmd())
	obj.AddCommand(objectiveEditCmd())
	obj.AddCommand(objectiveRemoveCmd())
	obj.AddCommand(objectiveStatusCmd())
	obj.AddCommand(objectiveWorkItemsCmd())
	return obj
}

func objectiveListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objectives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, err := displayedTimeFrame(ctx, a)
				if err != nil {
					return err
				}
				out, err := execute(ctx, a, middleware.GetObjectives{TimeFrameID: tf})
				if err != nil {
					return err
				}
				items := out.(middleware.GetObjectivesSucceed).Payload
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Order", "Name", "Area", "Owner", "KRs", "Work items"})
				for _, o := range items {
					area := ""
					if o.AreaID != nil {
						area = *o.AreaID
					}
					krs := make([]string, 0, len(o.KRs))
					for _, kr := range o.KRs {
						krs = append(krs, fmt.Sprintf("%s [%s]", kr.Content, kr.Status.Label()))
					}
					tw.AppendRow(table.Row{o.ID, o.Order, o.Name, area, o.Owner, strings.Join(krs, "\n"), joinInts(o.WorkItems)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func objectiveCreateCmd() *cobra.Command {
	var name, description, owner, area, comments string
	var krs []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create objective",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, err := objectiveTimeFrame(ctx, a)
				if err != nil {
					return err
				}
				existing, err := listObjectives(ctx, a, tf)
				if err != nil {
					return err
				}
				data := domain.Objective{Name: name, Description: description, Owner: owner, Comments: comments}
				if area != "" {
					target, err := findArea(ctx, a, area)
					if err != nil {
						return err
					}
					data.AreaID = &target.ID
				}
				for _, content := range krs {
					data.KRs = append(data.KRs, domain.KeyResult{ID: uuid.NewString(), Content: content, Status: domain.KRNotStarted})
				}
				out, err := executeIn(ctx, a, tf, middleware.CreateOKR{Objectives: existing, Data: data})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "objective name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	cmd.Flags().StringVar(&area, "area", "", "area id or name")
	cmd.Flags().StringVar(&comments, "comments", "", "comments")
	cmd.Flags().StringArrayVar(&krs, "kr", nil, "key result content (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func objectiveEditCmd() *cobra.Command {
	var name, description, owner, comments string
	var addKRs []string
	cmd := &cobra.Command{
		Use:   "edit <objective-id>",
		Short: "Update objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, target, err := findObjective(ctx, a, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					target.Name = name
				}
				if cmd.Flags().Changed("description") {
					target.Description = description
				}
				if cmd.Flags().Changed("owner") {
					target.Owner = owner
				}
				if cmd.Flags().Changed("comments") {
					target.Comments = comments
				}
				for _, content := range addKRs {
					target.KRs = append(target.KRs, domain.KeyResult{ID: uuid.NewString(), Content: content, Status: domain.KRNotStarted})
				}
				out, err := executeIn(ctx, a, tf, middleware.EditOKR{Objective: target})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "objective name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	cmd.Flags().StringVar(&comments, "comments", "", "comments")
	cmd.Flags().StringArrayVar(&addKRs, "add-kr", nil, "append a key result (repeatable)")
	return cmd
}

func objectiveRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <objective-id>",
		Short: "Remove objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, err := objectiveTimeFrame(ctx, a)
				if err != nil {
					return err
				}
				out, err := executeIn(ctx, a, tf, middleware.RemoveOKR{ID: args[0]})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	return cmd
}

func objectiveStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <objective-id> <kr-id> <status>",
		Short: "Set a key result status",
		Long:  krStatusHelp(),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseKRStatus(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, target, err := findObjective(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := target.SetKRStatus(args[1], status); err != nil {
					return err
				}
				out, err := executeIn(ctx, a, tf, middleware.EditKRStatus{Objective: target})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	}
	return cmd
}

func objectiveWorkItemsCmd() *cobra.Command {
	wi := &cobra.Command{Use: "workitems", Short: "Link or unlink work items"}
	wi.AddCommand(&cobra.Command{
		Use:   "add <objective-id> <work-item-id>...",
		Short: "Link work items",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseInts(args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, err := objectiveTimeFrame(ctx, a)
				if err != nil {
					return err
				}
				existing, err := listObjectives(ctx, a, tf)
				if err != nil {
					return err
				}
				out, err := executeIn(ctx, a, tf, middleware.AddWorkItems{
					Objectives: existing,
					Data:       middleware.AddWorkItemsData{IDs: ids, ObjectiveID: args[0]},
				})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	})
	wi.AddCommand(&cobra.Command{
		Use:   "remove <objective-id> <work-item-id>",
		Short: "Unlink a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid work item id %q", args[1])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tf, err := objectiveTimeFrame(ctx, a)
				if err != nil {
					return err
				}
				existing, err := listObjectives(ctx, a, tf)
				if err != nil {
					return err
				}
				out, err := executeIn(ctx, a, tf, middleware.DeleteWorkItems{
					Objectives: existing,
					Data:       middleware.DeleteWorkItemsData{ObjectiveID: args[0], ID: id},
				})
				if err != nil {
					return err
				}
				return printAction(out)
			})
		},
	})
	return wi
}

func workItemCmd() *cobra.Command {
	wi := &cobra.Command{Use: "workitem", Short: "Work item catalog"}
	wi.AddCommand(workItemShowCmd())
	wi.AddCommand(workItemOpenCmd())
	wi.AddCommand(workItemImportCmd())
	return wi
}

func workItemShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <work-item-id>...",
		Short: "Fetch work items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseInts(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := execute(ctx, a, middleware.GetWorkItems{IDs: ids})
				if err != nil {
					return err
				}
				items := out.(middleware.GetWorkItemsSucceed).WorkItems
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "State", "Type", "Assigned to", "URL"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ID, w.Title, w.State, w.WorkItemType, w.AssignedTo, w.URL})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func workItemOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <work-item-id>",
		Short: "Print the edit link of a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid work item id %q", args[0])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				_, err := execute(ctx, a, middleware.OpenWorkItem{ID: id})
				return err
			})
		},
	}
	return cmd
}

func workItemImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import work items from a JSON array into the local catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var items []domain.WorkItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Catalog.Import(ctx, items); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]int{"imported": len(items)})
				}
				fmt.Printf("imported %d work items\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding work items")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Action log",
		Long:  "Every intent and the actions dispatched for it, including background area cascades.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail the action log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Events.Tail(ctx, n, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityID, e.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "action type filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{
					JWTSecret:              os.Getenv("OKRHUB_JWT_SECRET"),
					AllowLegacyActorHeader: a.Config.Server.AllowLegacyActorHeader,
					DevLogin:               devLogin,
					Logger:                 a.Logger.Named("auth"),
				}
				if authCfg.JWTSecret == "" && !authCfg.AllowLegacyActorHeader {
					return fmt.Errorf("OKRHUB_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{App: a, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving OKR Hub API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, metrics at /metrics)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				a.Middleware.Wait()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "expose POST <base-path>/auth/dev/login (local testing only)")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	log, err := newLogger(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg, err := app.ResolveConfig(workspace, viper.GetString("project"))
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg, app.Options{
		Workspace: workspace,
		Logger:    log,
		Navigator: workitems.NavigatorFunc(func(_ context.Context, url string) error {
			fmt.Println(url)
			return nil
		}),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// displayedTimeFrame resolves --timeframe against the stored set, defaulting
// to the current time frame.
func displayedTimeFrame(ctx context.Context, a *app.App) (string, error) {
	ref := strings.TrimSpace(viper.GetString("timeframe"))
	set, ok, err := a.CurrentSet(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		if ref != "" {
			return "", fmt.Errorf("time frame %q not found", ref)
		}
		return "", nil
	}
	if ref == "" {
		return set.CurrentTimeFrameID, nil
	}
	tf, found := set.FindByName(ref)
	if !found {
		return "", fmt.Errorf("time frame %q not found", ref)
	}
	return tf.ID, nil
}

// objectiveTimeFrame is displayedTimeFrame for commands that write
// objectives, which need a time frame to live under.
func objectiveTimeFrame(ctx context.Context, a *app.App) (string, error) {
	tf, err := displayedTimeFrame(ctx, a)
	if err != nil {
		return "", err
	}
	if tf == "" {
		return "", fmt.Errorf("no time frames; run okr init --area <name>")
	}
	return tf, nil
}

func currentSet(ctx context.Context, a *app.App) (domain.TimeFrameSet, error) {
	set, ok, err := a.CurrentSet(ctx)
	if err != nil {
		return domain.TimeFrameSet{}, err
	}
	if !ok {
		return domain.TimeFrameSet{}, fmt.Errorf("no time frames; run okr init --area <name>")
	}
	return set, nil
}

func execute(ctx context.Context, a *app.App, intent middleware.Intent) (middleware.Outcome, error) {
	tf, err := displayedTimeFrame(ctx, a)
	if err != nil {
		return nil, err
	}
	return executeIn(ctx, a, tf, intent)
}

// executeIn runs intent with tf displayed and turns a failure action into an
// error.
func executeIn(ctx context.Context, a *app.App, tf string, intent middleware.Intent) (middleware.Outcome, error) {
	out := a.Execute(ctx, viper.GetString("actor-id"), middleware.State{DisplayedTimeFrameID: tf}, intent, nil)
	if f, ok := out.(middleware.Failure); ok {
		cause := f.Cause()
		if cause == nil {
			cause = errors.New("unknown error")
		}
		return nil, fmt.Errorf("%s: %w", f.Type(), cause)
	}
	return out, nil
}

func listObjectives(ctx context.Context, a *app.App, tf string) ([]domain.Objective, error) {
	items, err := a.Objectives.GetAll(ctx, tf)
	if err != nil {
		if docstore.IsCollectionMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func findObjective(ctx context.Context, a *app.App, id string) (string, domain.Objective, error) {
	tf, err := objectiveTimeFrame(ctx, a)
	if err != nil {
		return "", domain.Objective{}, err
	}
	items, err := listObjectives(ctx, a, tf)
	if err != nil {
		return "", domain.Objective{}, err
	}
	for _, o := range items {
		if o.ID == id {
			return tf, o.Clone(), nil
		}
	}
	return "", domain.Objective{}, fmt.Errorf("%w: %s", middleware.ErrObjectiveNotFound, id)
}

func findArea(ctx context.Context, a *app.App, ref string) (domain.Area, error) {
	areas, err := a.Areas.GetAll(ctx)
	if err != nil && !docstore.IsCollectionMissing(err) {
		return domain.Area{}, err
	}
	for _, ar := range areas {
		if ar.ID == ref {
			return ar, nil
		}
	}
	for _, ar := range areas {
		if ar.Name == ref {
			return ar, nil
		}
	}
	return domain.Area{}, fmt.Errorf("area %q not found", ref)
}

// krStatusHelp lists accepted key result statuses with their labels.
func krStatusHelp() string {
	parts := make([]string, 0, len(domain.KRStatuses()))
	for _, s := range domain.KRStatuses() {
		parts = append(parts, fmt.Sprintf("%s (%q)", s, s.Label()))
	}
	return "Status is one of " + strings.Join(parts, ", ") + ". Either form is accepted."
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printAction(a middleware.Action) error {
	if a == nil {
		return nil
	}
	raw, err := middleware.MarshalAction(a)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseInts(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid work item id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
