package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replica/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Read replicated documents",
	Long:    `Get, list and filter documents in the local replica.`,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentListCmd = &cobra.Command{
	Use:   "list [content-type]",
	Short: "List documents of a content type",
	Long: `Lists documents of a content type, or every entry and asset when none is
given. --filter takes a JSON object, for example:

  replica document list post --filter '{"slug": "hello"}'
  replica document list post --filter '{"rating": {"gte": 4}}'
  replica document list post --filter '{"author": {"name": {"ne": "Ann"}}}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocumentList,
}

var documentFindByCmd = &cobra.Command{
	Use:   "find-by [content-type]",
	Short: "Show the first document matching a filter",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentFindBy,
}

var documentCacheKeyCmd = &cobra.Command{
	Use:   "cache-key [content-type]",
	Short: "Print the cache key of a collection",
	Long: `Prints a key that changes whenever a document of the collection is added,
removed or updated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocumentCacheKey,
}

var (
	documentFilter  string
	documentLimit   int
	documentLocale  string
	documentInclude int
)

func init() {
	for _, c := range []*cobra.Command{documentGetCmd, documentListCmd, documentFindByCmd, documentCacheKeyCmd} {
		c.Flags().StringVar(&documentLocale, "locale", "", "locale to read, or * for all")
		c.Flags().IntVar(&documentInclude, "include", 1, "link resolution depth")
	}
	for _, c := range []*cobra.Command{documentListCmd, documentFindByCmd, documentCacheKeyCmd} {
		c.Flags().StringVarP(&documentFilter, "filter", "f", "", "filter as a JSON object")
	}
	documentListCmd.Flags().IntVarP(&documentLimit, "limit", "n", 20, "maximum number of documents (0 = no limit)")

	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentFindByCmd)
	documentCmd.AddCommand(documentCacheKeyCmd)
	rootCmd.AddCommand(documentCmd)
}

// findOptions returns the read options given by flags.
func findOptions() []domain.FindOption {
	opts := []domain.FindOption{domain.WithInclude(documentInclude)}
	if documentLocale != "" {
		opts = append(opts, domain.WithLocale(documentLocale))
	}
	return opts
}

// parseFilter decodes the --filter flag.
func parseFilter() (map[string]any, error) {
	if documentFilter == "" {
		return nil, nil
	}
	var filter map[string]any
	if err := json.Unmarshal([]byte(documentFilter), &filter); err != nil {
		return nil, fmt.Errorf("invalid --filter: %w", err)
	}
	return filter, nil
}

func contentTypeArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if app == nil || app.Documents == nil {
		return errors.New("document service not configured")
	}

	doc, err := app.Documents.Get(cmd.Context(), args[0], findOptions()...)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", args[0])
	}

	if jsonOutput {
		return printJSON(cmd, doc)
	}
	printDocument(cmd, doc)
	return nil
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if app == nil || app.Documents == nil {
		return errors.New("document service not configured")
	}
	filter, err := parseFilter()
	if err != nil {
		return err
	}

	ct := contentTypeArg(args)
	docs, err := app.Documents.List(cmd.Context(), ct, filter, documentLimit, findOptions()...)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if jsonOutput {
		if docs == nil {
			docs = []*domain.Document{}
		}
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	st := stylesFor(cmd.OutOrStdout())
	for _, doc := range docs {
		cmd.Printf("  %s  %s\n", doc.ID, st.Muted.Render(describe(doc)))
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentFindBy(cmd *cobra.Command, args []string) error {
	if app == nil || app.Documents == nil {
		return errors.New("document service not configured")
	}
	filter, err := parseFilter()
	if err != nil {
		return err
	}
	if len(filter) == 0 {
		return errors.New("--filter is required")
	}

	doc, err := app.Documents.FindBy(cmd.Context(), args[0], filter, findOptions()...)
	if err != nil {
		return fmt.Errorf("failed to find document: %w", err)
	}
	if doc == nil {
		return errors.New("no document matches the filter")
	}

	if jsonOutput {
		return printJSON(cmd, doc)
	}
	printDocument(cmd, doc)
	return nil
}

func runDocumentCacheKey(cmd *cobra.Command, args []string) error {
	if app == nil || app.Documents == nil {
		return errors.New("document service not configured")
	}
	filter, err := parseFilter()
	if err != nil {
		return err
	}

	key, err := app.Documents.CacheKey(cmd.Context(), contentTypeArg(args), filter, findOptions()...)
	if err != nil {
		return fmt.Errorf("failed to compute cache key: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, map[string]string{"cache_key": key})
	}
	cmd.Println(key)
	return nil
}

// describe is a one-line summary of doc.
func describe(doc *domain.Document) string {
	if doc.ContentType != "" {
		return fmt.Sprintf("%s rev %d", doc.ContentType, doc.Revision)
	}
	return fmt.Sprintf("%s rev %d", doc.Kind, doc.Revision)
}

func printDocument(cmd *cobra.Command, doc *domain.Document) {
	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.Title.Render(doc.ID))
	cmd.Printf("  Type:     %s\n", doc.Kind)
	if doc.ContentType != "" {
		cmd.Printf("  Content:  %s\n", doc.ContentType)
	}
	cmd.Printf("  Revision: %d\n", doc.Revision)
	if doc.Locale != "" {
		cmd.Printf("  Locale:   %s\n", doc.Locale)
	}
	if !doc.UpdatedAt.IsZero() {
		cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if len(doc.Fields) == 0 {
		return
	}
	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Println()
	for _, name := range names {
		cmd.Printf("  %s: %s\n", name, fieldText(doc.Fields[name]))
	}
}

// fieldText renders a field value, linked documents by id.
func fieldText(v any) string {
	switch t := v.(type) {
	case *domain.Document:
		return "-> " + t.ID
	case string:
		return t
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
