package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a garden from JSON",
		Long: "Import a garden from JSON (stdin or --file). Accepts the export envelope or a bare snapshot. " +
			"Without --replace, seeds and messages with known ids are skipped.",
		Run: runImport,
	}

	cmd.Flags().String("file", "", "Read from file instead of stdin")
	cmd.Flags().Bool("replace", false, "Replace the saved garden instead of merging")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	replace, _ := cmd.Flags().GetBool("replace")

	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Import(cmd.Context(), data, replace)
	if err != nil {
		exitErr("import", err)
	}

	printJSON(res)
}
