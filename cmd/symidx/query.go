package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/symindex"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a symindex workspace cache",
	Long:  "Run read-only queries against an already-indexed workspace.",
}

func init() {
	queryCmd.AddCommand(lookupCmd)
	queryCmd.AddCommand(byNameCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(refsCmd)
	queryCmd.AddCommand(fileRefsCmd)
	queryCmd.AddCommand(relationsCmd)
	queryCmd.AddCommand(crossSymbolsCmd)
	queryCmd.AddCommand(completionsCmd)
}

func parseSymbolID(s string) (symindex.SymbolID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid symbol id %q: %w", s, err)
	}
	return symindex.SymbolID(n), nil
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <id>",
	Short: "Look up a symbol by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	id, err := parseSymbolID(args[0])
	if err != nil {
		return outputError("lookup", err)
	}
	idx, err := openIndex()
	if err != nil {
		return outputError("lookup", err)
	}
	defer idx.Close()

	sym, ok := idx.Query().LookupByID(context.Background(), id)
	if !ok {
		return outputError("lookup", fmt.Errorf("no symbol with id %d", id))
	}
	return outputResult(CLIResult{Command: "lookup", Results: symbolToCLI(sym)})
}

var byNameCmd = &cobra.Command{
	Use:   "by-name <name>",
	Short: "Find every symbol with an exact name match",
	Args:  cobra.ExactArgs(1),
	RunE:  runByName,
}

func runByName(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return outputError("by-name", err)
	}
	defer idx.Close()

	syms := idx.Query().LookupByName(context.Background(), args[0])
	out := make([]CLISymbol, len(syms))
	for i, s := range syms {
		out[i] = symbolToCLI(s)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "by-name", Results: out, TotalCount: &total})
}

var (
	flagSearchScope     string
	flagSearchFlagsMask uint32
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy/tokenized-match symbol names, ranked best match first",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchScope, "scope", "", "restrict to symbols whose scope has this prefix")
	searchCmd.Flags().Uint32Var(&flagSearchFlagsMask, "flags", 0, "restrict to symbols with any of these SymbolFlag bits set (0: no filter)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return outputError("search", err)
	}
	defer idx.Close()

	syms := idx.Query().Matching(context.Background(), args[0], flagSearchScope, symindex.SymbolFlag(flagSearchFlagsMask))
	out := make([]CLISymbol, len(syms))
	for i, s := range syms {
		out[i] = symbolToCLI(s)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "search", Results: out, TotalCount: &total})
}

var flagRefKind string

var refsCmd = &cobra.Command{
	Use:   "refs <id>",
	Short: "List references to a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

func init() {
	refsCmd.Flags().StringVar(&flagRefKind, "kind", "", "restrict to one ref kind: reference|declaration|definition|call|super_call|override")
}

func runRefs(cmd *cobra.Command, args []string) error {
	id, err := parseSymbolID(args[0])
	if err != nil {
		return outputError("refs", err)
	}
	kind, err := parseRefKindFlag(flagRefKind)
	if err != nil {
		return outputError("refs", err)
	}

	idx, err := openIndex()
	if err != nil {
		return outputError("refs", err)
	}
	defer idx.Close()

	refs := idx.Query().ReferencesTo(context.Background(), id, kind)
	out := make([]CLIRef, len(refs))
	for i, r := range refs {
		out[i] = refToCLI(id, r)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "refs", Results: out, TotalCount: &total})
}

var flagFileRefKind string

var fileRefsCmd = &cobra.Command{
	Use:   "file-refs <uri>",
	Short: "List every reference located within a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileRefs,
}

func init() {
	fileRefsCmd.Flags().StringVar(&flagFileRefKind, "kind", "", "restrict to one ref kind")
}

func runFileRefs(cmd *cobra.Command, args []string) error {
	kind, err := parseRefKindFlag(flagFileRefKind)
	if err != nil {
		return outputError("file-refs", err)
	}

	idx, err := openIndex()
	if err != nil {
		return outputError("file-refs", err)
	}
	defer idx.Close()

	entries := idx.Query().FileReferences(context.Background(), args[0], kind)
	out := make([]CLIRef, len(entries))
	for i, re := range entries {
		out[i] = refEntryToCLI(re)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "file-refs", Results: out, TotalCount: &total})
}

func parseRefKindFlag(s string) (*symindex.RefKind, error) {
	if s == "" {
		return nil, nil
	}
	kinds := map[string]symindex.RefKind{
		"reference":   symindex.RefReference,
		"declaration": symindex.RefDeclaration,
		"definition":  symindex.RefDefinition,
		"call":        symindex.RefCall,
		"super_call":  symindex.RefSuperCall,
		"override":    symindex.RefOverride,
	}
	k, ok := kinds[s]
	if !ok {
		return nil, fmt.Errorf("unknown ref kind %q", s)
	}
	return &k, nil
}

var flagDirection string

var relationsCmd = &cobra.Command{
	Use:   "relations <id> <predicate>",
	Short: "List relations for a symbol under a predicate",
	Long:  "predicate is one of base_of|extend|overrides|overridden_by|inherits_from|inherited_by.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelations,
}

func init() {
	relationsCmd.Flags().StringVar(&flagDirection, "direction", "both", "both|down|up (down: id is subject, up: id is object)")
}

func runRelations(cmd *cobra.Command, args []string) error {
	id, err := parseSymbolID(args[0])
	if err != nil {
		return outputError("relations", err)
	}
	pred, err := parsePredicate(args[1])
	if err != nil {
		return outputError("relations", err)
	}

	idx, err := openIndex()
	if err != nil {
		return outputError("relations", err)
	}
	defer idx.Close()

	ctx := context.Background()
	var rels []symindex.Relation
	switch flagDirection {
	case "down":
		rels = idx.Query().RelationsDown(ctx, id, pred)
	case "up":
		rels = idx.Query().RelationsUp(ctx, id, pred)
	default:
		rels = idx.Query().Relations(ctx, id, pred)
	}

	out := make([]CLIRelation, len(rels))
	for i, r := range rels {
		out[i] = relationToCLI(r)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "relations", Results: out, TotalCount: &total})
}

var crossSymbolsCmd = &cobra.Command{
	Use:   "cross-symbols <package> [name]",
	Short: "List cross-language bridges recorded for a package",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCrossSymbols,
}

func runCrossSymbols(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 2 {
		name = args[1]
	}

	idx, err := openIndex()
	if err != nil {
		return outputError("cross-symbols", err)
	}
	defer idx.Close()

	css := idx.Query().CrossSymbols(context.Background(), args[0], name)
	out := make([]CLICrossSymbol, len(css))
	for i, cs := range css {
		out[i] = crossSymbolToCLI(cs)
	}
	total := len(out)
	return outputResult(CLIResult{Command: "cross-symbols", Results: out, TotalCount: &total})
}

var completionsCmd = &cobra.Command{
	Use:   "completions <prefix>",
	Short: "List completion items fuzzy-prefix-matching a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompletions,
}

func runCompletions(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return outputError("completions", err)
	}
	defer idx.Close()

	syms, items := idx.Query().Completions(context.Background(), args[0])
	type completion struct {
		Symbol CLISymbol               `json:"symbol"`
		Item   symindex.CompletionItem `json:"item"`
	}
	out := make([]completion, len(items))
	for i := range items {
		out[i] = completion{Symbol: symbolToCLI(syms[i]), Item: items[i]}
	}
	total := len(out)
	return outputResult(CLIResult{Command: "completions", Results: out, TotalCount: &total})
}
