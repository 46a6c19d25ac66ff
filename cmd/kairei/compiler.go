package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kairei-run/kairei/internal/dsl/parser"
	"github.com/kairei-run/kairei/internal/dsl/token"
)

// newCompilerCmd exposes the scanner stage of the DSL pipeline
// (internal/dsl/token) as `compiler validate`. The parser only
// implements expression/statement grammar atop generic combinators, not
// a whole-program declaration grammar, so this command validates
// lexical structure rather than claiming to compile a full `.kairei`
// program.
func newCompilerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compiler",
		Short: "check DSL source lexically, and render language documentation",
	}
	cmd.AddCommand(newCompilerValidateCmd())
	cmd.AddCommand(newCompilerSuggestCmd())
	return cmd
}

func newCompilerValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "tokenize a DSL source file and report scan errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tokens, err := token.Tokenize(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Printf("%s: %d tokens, no lexical errors\n", args[0], len(tokens))
			return nil
		},
	}
}

// newCompilerSuggestCmd renders the DSL's documentation collection
// (internal/dsl/parser.Collector), currently populated from the fixed
// keyword set (internal/dsl/token.Documentation); further providers can
// register as the grammar grows past lexical analysis.
func newCompilerSuggestCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "render generated documentation for the DSL's recognized constructs",
		RunE: func(cmd *cobra.Command, args []string) error {
			collector := parser.NewCollector()
			collector.Register(token.Documentation{})
			collector.Collect()
			collection := collector.Collection()

			if issues := collection.Validate(); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", issue)
				}
			}

			switch format {
			case "markdown", "":
				fmt.Print(collection.ExportMarkdown())
			case "html":
				html, err := collection.ExportHTML()
				if err != nil {
					return err
				}
				fmt.Print(html)
			case "json":
				data, err := collection.ExportJSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			default:
				return fmt.Errorf("unknown format %q (want markdown, html, or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, html, or json")
	return cmd
}
