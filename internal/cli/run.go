package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ScuffedEpoch/TINS-MCP/internal/lifecycle"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interactive awake session",
		Long: "Awakens the agent, prints the awakening prompt and records stdin lines " +
			"as user messages. Commands: /end, /prompt, /status, /search, /sleep, /quit. " +
			"The session always sleeps on exit, so recorded conversations are distilled.",
		Run: runRun,
	}

	cmd.Flags().Int("recent", lifecycle.DefaultRecentMemoriesLimit, "Recent memories loaded on awakening")
	cmd.Flags().Int("threshold", lifecycle.DefaultImportantMemoriesThreshold, "Importance threshold for important memories")
	cmd.Flags().Int("important", lifecycle.DefaultImportantMemoriesLimit, "Important memories loaded on awakening")
	cmd.Flags().Int("updates", lifecycle.DefaultRecentUpdatesLimit, "Dreamstate updates loaded on awakening")

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	recent, _ := cmd.Flags().GetInt("recent")
	threshold, _ := cmd.Flags().GetInt("threshold")
	important, _ := cmd.Flags().GetInt("important")
	updates, _ := cmd.Flags().GetInt("updates")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	ctrl := lifecycle.New(s, nil, nil, newLogger())

	if err := ctrl.Initialize(ctx); err != nil {
		exitErr("initialize", err)
	}
	if _, err := ctrl.Awaken(ctx, lifecycle.AwakenOptions{
		RecentMemoriesLimit:        recent,
		ImportantMemoriesThreshold: threshold,
		ImportantMemoriesLimit:     important,
		RecentUpdatesLimit:         updates,
	}); err != nil {
		exitErr("awaken", err)
	}

	prompt, err := ctrl.AwakeningPrompt()
	if err != nil {
		exitErr("awakening prompt", err)
	}
	fmt.Println(prompt)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
loop:
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/sleep":
			break loop
		case line == "/end":
			mem, err := ctrl.EndConversation(ctx)
			if err != nil {
				exitErr("end conversation", err)
			}
			if mem == nil {
				fmt.Println("no conversation open")
				continue
			}
			printJSON(mem)
		case line == "/prompt":
			p, err := ctrl.AwakeningPrompt()
			if err != nil {
				exitErr("awakening prompt", err)
			}
			fmt.Println(p)
		case line == "/status":
			printJSON(ctrl.Status())
		case strings.HasPrefix(line, "/search"):
			var tags []string
			for _, t := range strings.Fields(strings.TrimPrefix(line, "/search")) {
				tags = append(tags, strings.Trim(t, ","))
			}
			memories, err := ctrl.SearchMemories(ctx, "", tags, lifecycle.SearchOptions{})
			if err != nil {
				exitErr("search", err)
			}
			if len(memories) == 0 {
				fmt.Println("[]")
				continue
			}
			printJSON(memories)
		case strings.HasPrefix(line, "/"):
			fmt.Printf("unknown command %s\n", line)
		default:
			// After /end there is no open conversation; keep the
			// session alive so it still sleeps on exit.
			if _, err := ctrl.RecordMessage(ctx, "user", line); err != nil {
				fmt.Printf("cannot record message: %v\n", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		exitErr("read stdin", err)
	}

	update, err := ctrl.Sleep(ctx, lifecycle.SleepOptions{})
	if err != nil {
		exitErr("sleep", err)
	}
	if update != nil {
		printJSON(update)
	}
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
