package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/templates"
)

type templateLine struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Image    bool     `json:"image"`
	Keywords []string `json:"keywords,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

func newTemplatesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the reference template library",
	}
	cmd.AddCommand(newTemplatesListCmd(root), newTemplatesCheckCmd(root))
	return cmd
}

func loadRegistry(cmd *cobra.Command, root *rootOptions) (*templates.Registry, error) {
	a, err := setup(cmd.Context(), root)
	if err != nil {
		return nil, err
	}
	return a.store.Current(), nil
}

func newTemplatesListCmd(root *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd, root)
			if err != nil {
				return err
			}
			lines := make([]templateLine, 0, reg.Len())
			for _, t := range reg.Templates() {
				l := templateLine{ID: t.ID, Category: string(t.Category), Image: t.HasImage(), Keywords: t.Keywords}
				for _, r := range t.Rules {
					l.Fields = append(l.Fields, r.Name)
				}
				lines = append(lines, l)
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(lines)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tCATEGORY\tIMAGE\tFIELDS\n")
			for _, l := range lines {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", l.ID, l.Category, l.Image, strings.Join(l.Fields, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd, "%d template(s) from %s, loaded %s\n", reg.Len(), reg.Source(), reg.LoadedAt().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print templates as JSON")
	return cmd
}

func newTemplatesCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the template library and report skipped entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd, root)
			if err != nil {
				return err
			}
			warnings := reg.Warnings()
			for _, w := range warnings {
				printf(cmd, "WARN %s\n", w)
			}
			printf(cmd, "%d template(s) loaded, %d skipped\n", reg.Len(), len(warnings))
			if len(warnings) > 0 {
				return common.NewAppError(common.CodeTemplateLoad,
					fmt.Sprintf("%d template(s) skipped", len(warnings)), common.ErrTemplateLoad)
			}
			return nil
		},
	}
}
