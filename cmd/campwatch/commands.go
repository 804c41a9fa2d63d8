package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/campwatch/internal/config"
	"github.com/bgricker/campwatch/internal/monitor"
	"github.com/bgricker/campwatch/internal/output"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <campaign-id>",
		Short: "Show the execution history of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShow(cmd, args)
		},
	}
	addExecutionFlag(cmd)
	cmd.Flags().Bool("last", false, "show the last complete execution instead of the latest")
	cmd.Flags().Bool("scenarios", false, "list the campaign scenarios")
	cmd.Flags().String("scenario-sort", "", "scenario sort key (title|creationDate|id), prefix with - to reverse")
	return cmd
}

func (a *app) runShow(cmd *cobra.Command, args []string) error {
	campaignID, err := parseCampaignID(args[0])
	if err != nil {
		return err
	}
	req, err := loadRequest(cmd, campaignID)
	if err != nil {
		return err
	}
	last, _ := cmd.Flags().GetBool("last")
	listScenarios, _ := cmd.Flags().GetBool("scenarios")
	scenarioSort, _ := cmd.Flags().GetString("scenario-sort")

	m, err := a.newMonitor(nil)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := a.load(cmd.Context(), m, req); err != nil {
		return err
	}
	if last {
		m.SelectLastComplete()
	}
	if err := applySort(scenarioSort, m.SortScenariosBy); err != nil {
		return err
	}

	v := m.View()
	if listScenarios && strings.EqualFold(a.cfg.Format, config.FormatPretty) {
		if err := output.NewPretty(cmd.OutOrStdout()).RenderScenarios(v); err != nil {
			return err
		}
	}
	return renderView(a.cfg.Format, cmd.OutOrStdout(), v)
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <campaign-id>",
		Short: "Follow a campaign until its running execution ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseCampaignID(args[0])
			if err != nil {
				return err
			}
			req, err := loadRequest(cmd, campaignID)
			if err != nil {
				return err
			}
			return a.follow(cmd, req, nil)
		},
	}
	addExecutionFlag(cmd)
	return cmd
}

func newExecuteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute <campaign-id>",
		Short: "Execute a campaign on an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseCampaignID(args[0])
			if err != nil {
				return err
			}
			env, err := a.environment(cmd.Context())
			if err != nil {
				return err
			}
			action := func(m *monitor.Monitor) error { return m.Execute(env) }
			return a.act(cmd, monitor.LoadRequest{CampaignID: campaignID, SelectLast: true}, action)
		},
	}
	cmd.Flags().String("env", "", "environment to execute the campaign on")
	cmd.Flags().Bool("watch", false, "follow the new execution until it ends")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <campaign-id>",
		Short: "Replay the failed scenarios of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseCampaignID(args[0])
			if err != nil {
				return err
			}
			req, err := loadRequest(cmd, campaignID)
			if err != nil {
				return err
			}
			return a.act(cmd, req, (*monitor.Monitor).ReplayFailed)
		},
	}
	addExecutionFlag(cmd)
	cmd.Flags().Bool("watch", false, "follow the replay until it ends")
	return cmd
}

func newStopCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <campaign-id>",
		Short: "Stop a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseCampaignID(args[0])
			if err != nil {
				return err
			}
			req, err := loadRequest(cmd, campaignID)
			if err != nil {
				return err
			}
			return a.act(cmd, req, (*monitor.Monitor).Stop)
		},
	}
	addExecutionFlag(cmd)
	return cmd
}

// act loads the campaign, issues action and waits for it. With --watch the
// resulting execution is followed until polling ends.
func (a *app) act(cmd *cobra.Command, req monitor.LoadRequest, action func(*monitor.Monitor) error) error {
	watch := false
	if cmd.Flags().Lookup("watch") != nil {
		watch, _ = cmd.Flags().GetBool("watch")
	}
	if watch {
		return a.follow(cmd, req, action)
	}

	m, err := a.newMonitor(nil)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := a.load(cmd.Context(), m, req); err != nil {
		return err
	}
	if err := checkSelection(m.View(), req); err != nil {
		return err
	}
	if err := action(m); err != nil {
		return err
	}
	m.WaitActions()

	v := m.View()
	if err := actionError(v); err != nil {
		return err
	}
	return renderView(a.cfg.Format, cmd.OutOrStdout(), v)
}

// follow renders every change of the campaign until polling ends or the
// process is interrupted.
func (a *app) follow(cmd *cobra.Command, req monitor.LoadRequest, action func(*monitor.Monitor) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := newViewPrinter(a.cfg, cmd.OutOrStdout())
	m, err := a.newMonitor(func(v monitor.View) {
		if err := printer.print(v); err != nil {
			a.logger.Warn("render view failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if err := a.load(ctx, m, req); err != nil {
		return err
	}
	if action != nil {
		if err := checkSelection(m.View(), req); err != nil {
			return err
		}
		if err := action(m); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.Close()
		<-done
		return ctx.Err()
	}

	v := m.View()
	if err := printer.print(v); err != nil {
		return err
	}
	return actionError(v)
}

func checkSelection(v monitor.View, req monitor.LoadRequest) error {
	if req.ExecutionID == 0 {
		return nil
	}
	if v.Selected == nil || v.Selected.ExecutionID != req.ExecutionID {
		return fmt.Errorf("execution %d: %w", req.ExecutionID, monitor.ErrInvalidSelection)
	}
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <campaign-id>",
		Short: "Export the raw scenario definitions of a campaign as a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd.Context(), cmd, args)
		},
	}
	cmd.Flags().StringP("output", "o", "", "archive file to write")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) runExport(ctx context.Context, cmd *cobra.Command, args []string) error {
	campaignID, err := parseCampaignID(args[0])
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("output")

	m, err := a.newMonitor(nil)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Load(ctx, monitor.LoadRequest{CampaignID: campaignID}); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	res, err := m.Export(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close archive: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	if strings.EqualFold(a.cfg.Format, config.FormatJSON) {
		return output.NewJSON(cmd.OutOrStdout()).RenderExport(path, res)
	}
	return output.NewPretty(cmd.OutOrStdout()).RenderExport(path, res)
}
