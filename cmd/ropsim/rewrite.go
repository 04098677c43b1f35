package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/naming"
	"mercator-hq/ropsim/pkg/templates"
)

var rewriteFlags struct {
	nodeIndex int
	at        string
	timezone  string
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <path>",
	Short: "Show the published path for a template or live path",
	Long: `Rewrite a path the way the simulator does. Without --node-index the date
stamp is moved to the ROP window containing --at, as a rotation would. With
--node-index the node name is replaced as well, as a bootstrap would.

Examples:
  # Rotate a live path to the current window
  ropsim rewrite XML/NodeA0001/A20220412.1600+0100-1615+0100_NodeA0001_statsfile.xml

  # Derive node 12's path for a fixed time
  ropsim rewrite XML/NodeA0001/A20220412.1600+0100-1615+0100_NodeA0001_statsfile.xml \
    --node-index 12 --at 2022-04-12T16:20:00+01:00`,
	Args: cobra.ExactArgs(1),
	RunE: rewritePath,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().IntVar(&rewriteFlags.nodeIndex, "node-index", -1, "synthetic node index (bootstrap naming)")
	rewriteCmd.Flags().StringVar(&rewriteFlags.at, "at", "", "reference time (RFC3339, default now)")
	rewriteCmd.Flags().StringVar(&rewriteFlags.timezone, "timezone", "UTC", "IANA zone windows are rendered in")
}

func rewritePath(cmd *cobra.Command, args []string) error {
	loc, err := time.LoadLocation(rewriteFlags.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	ref := time.Now()
	if rewriteFlags.at != "" {
		if ref, err = time.Parse(time.RFC3339, rewriteFlags.at); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}
	ref = ref.In(loc)

	p := args[0]
	var next string
	if rewriteFlags.nodeIndex >= 0 {
		next, err = naming.RenameWithNewNodeAndDateTime(p, ref, rewriteFlags.nodeIndex)
	} else {
		next, err = naming.UpdateFilePathWithNewDateTime(p, ref)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, next)
	fmt.Fprintf(out, "category: %s\n", templates.Classify(p))
	return nil
}
