package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ScuffedEpoch/TINS-MCP/internal/awakening"
)

func init() {
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Show dreamstate history",
		Long:  "Show recent dreamstate updates, newest first, each with the diff of changed fields.",
		Run:   runUpdates,
	}

	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runUpdates(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	updates, err := s.RecentUpdates(cmd.Context(), limit)
	if err != nil {
		exitErr("list updates", err)
	}

	if len(updates) == 0 {
		fmt.Println("[]")
		return
	}

	out := make([]awakening.UpdateDiff, 0, len(updates))
	for _, u := range updates {
		out = append(out, awakening.UpdateDiff{Update: u, Diff: u.Diff()})
	}
	printJSON(out)
}
