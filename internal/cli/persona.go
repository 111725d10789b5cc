package cli

import (
	"github.com/spf13/cobra"

	"github.com/ScuffedEpoch/TINS-MCP/internal/lifecycle"
)

func init() {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Show the current persona",
		Long:  "Show the current persona profile, creating the default one if none exists yet.",
		Run:   runPersona,
	}

	RootCmd.AddCommand(cmd)
}

func runPersona(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctrl := lifecycle.New(s, nil, nil, newLogger())
	if err := ctrl.Initialize(cmd.Context()); err != nil {
		exitErr("initialize", err)
	}

	p, err := s.CurrentPersona(cmd.Context())
	if err != nil {
		exitErr("load persona", err)
	}
	printJSON(p)
}
