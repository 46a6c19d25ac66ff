package token

import "github.com/kairei-run/kairei/internal/dsl/parser"

// keywordDoc pairs a Keyword with the documentation describing it.
// Descriptions and categories mirror original_source/kairei-core/src/
// tokenizer/keyword.rs's doc comments on the Keyword enum.
type keywordDoc struct {
	keyword     Keyword
	description string
	category    parser.Category
	example     string
}

var keywordDocs = []keywordDoc{
	{Micro, "Defines a MicroAgent component.", parser.CategoryDefinition, "micro greeter { ... }"},
	{World, "Defines a World component.", parser.CategoryDefinition, "world office { ... }"},
	{Handlers, "Defines a handlers block grouping observe/answer/react handlers.", parser.CategoryDefinition, "handlers { observe Tick { ... } }"},
	{Events, "Defines the events block a MicroAgent or World emits.", parser.CategoryDefinition, "events { Greeted }"},
	{Config, "Defines a configuration block.", parser.CategoryDefinition, "config { retries: 3 }"},
	{Policy, "Defines a policy statement constraining agent behavior.", parser.CategoryDefinition, "policy { max_retries: 3 }"},
	{State, "Defines the state block holding a MicroAgent's persistent variables.", parser.CategoryDefinition, "state { count: Int = 0 }"},
	{Observe, "Defines an observe block reacting to a published event.", parser.CategoryHandler, "observe Tick { ... }"},
	{Answer, "Defines an answer block responding to a request.", parser.CategoryHandler, "answer Greet(name: String) -> String { ... }"},
	{Query, "Defines a query block, a read-only request handler.", parser.CategoryHandler, "query Status() -> String { ... }"},
	{Action, "Defines an action block, a handler invoked directly rather than via event or request.", parser.CategoryHandler, "action Reset() { ... }"},
	{React, "Defines a react block reacting to a world-level event.", parser.CategoryHandler, "react RoomEntered { ... }"},
	{Request, "Used in request handler definitions to name the requester.", parser.CategoryHandler, "request from caller { ... }"},
	{Emit, "Emits an event from within a handler body.", parser.CategoryStatement, "emit Greeted(name: name)"},
	{Think, "Invokes an LLM provider with a prompt, within a handler body.", parser.CategoryExpression, "think(\"summarize: \" + text)"},
	{If, "Control-flow keyword for conditional execution.", parser.CategoryStatement, "if x > 0 { ... }"},
	{Else, "Control-flow keyword for the alternative branch of an if.", parser.CategoryStatement, "if x > 0 { ... } else { ... }"},
	{Return, "Returns a value from a handler body.", parser.CategoryStatement, "return 42"},
	{Await, "Awaits the result of an asynchronous request or think expression.", parser.CategoryExpression, "await request Greet(name: \"a\") to other"},
	{OnFail, "Lifecycle hook invoked when a handler fails.", parser.CategoryHandler, "onFail { ... }"},
	{OnInit, "Lifecycle hook invoked once when a MicroAgent starts.", parser.CategoryHandler, "onInit { ... }"},
	{OnDestroy, "Lifecycle hook invoked once when a MicroAgent shuts down.", parser.CategoryHandler, "onDestroy { ... }"},
	{Lifecycle, "Defines a lifecycle block grouping onInit/onDestroy/onFail hooks.", parser.CategoryDefinition, "lifecycle { onInit { ... } }"},
	{With, "Attaches configuration to a think or request expression.", parser.CategoryExpression, "think(prompt) with { model: \"gpt-4\" }"},
	{To, "Names the target agent of a request or emit.", parser.CategoryExpression, "request Greet(name: \"a\") to other"},
	{On, "Names the event type a handler matches.", parser.CategoryHandler, "on Tick { ... }"},
	{ReThrow, "Re-raises the current failure from within an onFail block.", parser.CategoryStatement, "reThrow"},
	{Sistence, "Declares a sistence-memory capability plugin.", parser.CategoryDefinition, "sistence { ... }"},
	{Will, "Declares a will-action capability plugin.", parser.CategoryDefinition, "will { ... }"},
}

// Documentation implements parser.Provider, contributing one
// Documentation entry per recognized keyword so `compiler suggest` has
// real lexical content to render even though no whole-program grammar
// exists yet to document individual parser combinators.
type Documentation struct{}

// ProvideDocumentation returns the fixed keyword set's documentation.
func (Documentation) ProvideDocumentation() []parser.Documentation {
	docs := make([]parser.Documentation, 0, len(keywordDocs))
	for _, kd := range keywordDocs {
		docs = append(docs, parser.Documentation{
			Name:        string(kd.keyword),
			Description: kd.description,
			Category:    kd.category,
			Examples:    []string{kd.example},
		})
	}
	return docs
}
