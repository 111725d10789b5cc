package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ScuffedEpoch/TINS-MCP/internal/lifecycle"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by tags",
		Long: "Search memories by tags; without tags the newest memories are returned. " +
			"The free-text query is accepted for forward compatibility but not matched against content.",
		Run: runSearch,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().IntP("limit", "l", lifecycle.DefaultSearchLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	var tags []string
	for _, t := range strings.Split(tagsStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctrl := lifecycle.New(s, nil, nil, newLogger())
	memories, err := ctrl.SearchMemories(cmd.Context(), query, tags, lifecycle.SearchOptions{Limit: limit})
	if err != nil {
		exitErr("search", err)
	}

	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(memories)
}
