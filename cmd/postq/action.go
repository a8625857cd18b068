package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/postq/internal/app"
	"github.com/foxzi/postq/internal/control"
	"github.com/foxzi/postq/internal/postfix"
)

var (
	actionFlags selectorFlags
	actionAll   bool
)

var holdCmd = &cobra.Command{
	Use:   "hold [queue_id ...]",
	Short: "Put selected messages on hold",
	RunE:  runAction(control.OpHold),
}

var releaseCmd = &cobra.Command{
	Use:   "release [queue_id ...]",
	Short: "Release selected messages from hold",
	RunE:  runAction(control.OpRelease),
}

var requeueCmd = &cobra.Command{
	Use:   "requeue [queue_id ...]",
	Short: "Requeue selected messages",
	RunE:  runAction(control.OpRequeue),
}

var deleteCmd = &cobra.Command{
	Use:   "delete [queue_id ...]",
	Short: "Delete selected messages from the queue",
	RunE:  runAction(control.OpDelete),
}

func init() {
	for _, cmd := range []*cobra.Command{holdCmd, releaseCmd, requeueCmd, deleteCmd} {
		actionFlags.register(cmd)
		cmd.Flags().BoolVar(&actionAll, "all", false, "act on every message in the queue")
		rootCmd.AddCommand(cmd)
	}
}

// runAction builds the RunE for one queue operation. Targets come from
// explicit queue ID arguments, from the selection flags, or from
// --all; exactly one form is required so a bare command cannot act on
// the whole queue by accident.
func runAction(op control.Operation) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := app.SetupLogger(cfg.Logging)
		dispatcher := control.NewDispatcher(cfg.Postfix.Postsuper, postfix.ExecRunner{}, logger)

		sel, hasSel, err := actionFlags.build(time.Now())
		if err != nil {
			return err
		}

		if actionAll {
			if len(args) > 0 || hasSel {
				return fmt.Errorf("--all cannot be combined with queue IDs or selection flags")
			}
			return dispatcher.ApplyAll(cmd.Context(), op)
		}

		ids := args
		if hasSel {
			if len(args) > 0 {
				return fmt.Errorf("pass either queue IDs or selection flags, not both")
			}
			store := openStore(cfg, logger)
			msgs, err := store.Select(cmd.Context(), sel)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				ids = append(ids, m.ID)
			}
		}

		if len(ids) == 0 {
			if hasSel {
				fmt.Println("No matching messages")
				return nil
			}
			return fmt.Errorf("nothing selected: pass queue IDs, selection flags or --all")
		}

		result, err := dispatcher.Apply(cmd.Context(), op, ids)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRESULT")
		for _, o := range result.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(w, "%s\tfailed: %v\n", o.ID, o.Err)
			} else {
				fmt.Fprintf(w, "%s\tok\n", o.ID)
			}
		}
		w.Flush()

		if failed := result.Failed(); len(failed) > 0 {
			return fmt.Errorf("%s failed for %d of %d messages", op, len(failed), len(result.Outcomes))
		}
		fmt.Printf("\n%s applied to %d messages\n", op, len(result.Outcomes))
		return nil
	}
}
