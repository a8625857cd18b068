package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/postq/internal/app"
	"github.com/foxzi/postq/internal/headers"
	"github.com/foxzi/postq/internal/postfix"
	"github.com/foxzi/postq/internal/queue"
)

var (
	queueListFlags  selectorFlags
	queueListLimit  int
	queueShowHeader bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue inspection commands",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued messages matching the selection flags",
	RunE:  runQueueList,
}

var queueShowCmd = &cobra.Command{
	Use:   "show <queue_id>",
	Short: "Show message details",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueShow,
}

var queueSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show per-status counts and aggregate size",
	RunE:  runQueueSummary,
}

func init() {
	queueListFlags.register(queueListCmd)
	queueListCmd.Flags().IntVar(&queueListLimit, "limit", 0, "maximum number of messages to show (0 = no limit)")
	queueShowCmd.Flags().BoolVar(&queueShowHeader, "headers", false, "fetch and show the full header set")

	queueCmd.AddCommand(queueListCmd, queueShowCmd, queueSummaryCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.SetupLogger(cfg.Logging)
	store := openStore(cfg, logger)

	sel, _, err := queueListFlags.build(time.Now())
	if err != nil {
		return err
	}

	msgs, err := store.Select(cmd.Context(), sel)
	if err != nil {
		return err
	}

	if len(msgs) == 0 {
		fmt.Println("No matching messages")
		return nil
	}

	if queueListLimit > 0 && len(msgs) > queueListLimit {
		fmt.Printf("Showing first %d of %d matching messages\n", queueListLimit, len(msgs))
		msgs = msgs[:queueListLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tARRIVED\tSENDER\tRECIPIENTS")
	fmt.Fprintln(w, "--\t------\t----\t-------\t------\t----------")

	for _, m := range msgs {
		rcpts := strings.Join(m.Recipients, ", ")
		if len(rcpts) > 40 {
			rcpts = rcpts[:37] + "..."
		}

		arrived := ""
		if !m.Arrived.IsZero() {
			arrived = m.Arrived.Format("2006-01-02 15:04")
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			m.ID, m.Status, m.Size, arrived, m.Sender, rcpts)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d messages\n", len(msgs))

	return nil
}

func runQueueShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.SetupLogger(cfg.Logging)
	store := openStore(cfg, logger)

	msg, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Message: %s\n\n", msg.ID)
	fmt.Printf("Status:     %s\n", msg.Status)
	fmt.Printf("Size:       %d bytes\n", msg.Size)
	if !msg.Arrived.IsZero() {
		fmt.Printf("Arrived:    %s\n", msg.Arrived.Format(time.RFC3339))
	}
	fmt.Printf("Sender:     %s\n", msg.Sender)
	fmt.Printf("Recipients: %s\n", strings.Join(msg.Recipients, ", "))

	if msg.ParseError != "" {
		fmt.Printf("\nParse Error:\n  %s\n", msg.ParseError)
	}

	if len(msg.Errors) > 0 {
		fmt.Println("\nDelivery Errors:")
		for _, e := range msg.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if queueShowHeader {
		loader := headers.NewLoader(cfg.Postfix.Postcat, postfix.ExecRunner{}, logger)
		hdrs, err := loader.Load(cmd.Context(), msg)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(hdrs))
		for k := range hdrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Println("\nHeaders:")
		for _, k := range keys {
			for _, v := range hdrs[k] {
				fmt.Printf("  %s: %s\n", k, v)
			}
		}
	}

	return nil
}

func runQueueSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.SetupLogger(cfg.Logging)
	store := openStore(cfg, logger)

	sum, err := store.Summary(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println("Queue summary:")
	for _, status := range []queue.Status{
		queue.StatusActive, queue.StatusDeferred, queue.StatusHeld,
		queue.StatusBounced, queue.StatusCorrupt,
	} {
		if n := sum.ByStatus[status]; n > 0 {
			fmt.Printf("  %-10s %d\n", status+":", n)
		}
	}
	fmt.Printf("\nTotal:      %d messages, %d bytes\n", sum.Total, sum.Bytes)
	if !sum.Oldest.IsZero() {
		fmt.Printf("Oldest:     %s\n", sum.Oldest.Format(time.RFC3339))
	}

	return nil
}
