package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the garden as JSON",
		Long:  "Export the saved garden as a {generatedAt, state} JSON envelope, to stdout or a file.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	data, err := s.Export(cmd.Context(), time.Now())
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		exitErr("write export", err)
	}
	fmt.Printf(`{"ok":true,"file":%q}`+"\n", out)
}
