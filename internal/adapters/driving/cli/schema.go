package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replica/internal/core/domain"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show inferred content type schemas",
	Long: `Shows the field types inferred from synced entries.

Schemas are built while syncing. Use --rebuild to re-sample every entry
in the store and resolve link target types.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

var schemaRebuild bool

func init() {
	schemaCmd.Flags().BoolVar(&schemaRebuild, "rebuild", false, "re-sample every stored entry")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Schemas == nil {
		return errors.New("schema service not configured")
	}

	types := app.Schemas.Types()
	if schemaRebuild {
		rebuilt, err := app.Schemas.Rebuild(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to rebuild schemas: %w", err)
		}
		types = rebuilt
	}

	if jsonOutput {
		if types == nil {
			types = []domain.SchemaType{}
		}
		return printJSON(cmd, types)
	}

	if len(types) == 0 {
		cmd.Println("No content types known. Run 'replica sync' or 'replica schema --rebuild'.")
		return nil
	}

	st := stylesFor(cmd.OutOrStdout())
	for i, t := range types {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("%s %s\n", st.Title.Render(t.Name), st.Muted.Render("("+t.ContentType+")"))
		for _, name := range t.FieldNames() {
			cmd.Printf("  %s: %s\n", name, fieldType(t.Fields[name]))
		}
	}
	return nil
}

// fieldType renders a field definition as "[Link<author|person>]".
func fieldType(f domain.FieldDef) string {
	s := string(f.Type)
	if len(f.LinkTypes) > 0 {
		s += "<" + strings.Join(f.LinkTypes, "|") + ">"
	}
	if f.Array {
		s = "[" + s + "]"
	}
	return s
}
