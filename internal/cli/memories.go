package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List memories",
		Long:  "List the newest memories, or the most important ones when --min-importance is set.",
		Run:   runMemories,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Int("min-importance", 0, "Only memories with importance >= this, ordered by importance")

	RootCmd.AddCommand(cmd)
}

func runMemories(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	minImportance, _ := cmd.Flags().GetInt("min-importance")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var memories []model.Memory
	if minImportance > 0 {
		memories, err = s.ImportantMemories(cmd.Context(), minImportance, limit)
	} else {
		memories, err = s.RecentMemories(cmd.Context(), limit)
	}
	if err != nil {
		exitErr("list memories", err)
	}

	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(memories)
}
