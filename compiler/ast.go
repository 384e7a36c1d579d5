// Package compiler translates Karel source text into bytecode for the vm
// package. The grammar is declared with participle struct tags; codegen
// walks the parsed tree and emits through vm.ImageBuilder.
package compiler

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ---------------------------------------------------------------------------
// Grammar
// ---------------------------------------------------------------------------

// Program is the top-level node: a sequence of procedure definitions.
type Program struct {
	Defs []*Definition `@@*`
}

// Definition: define <name> <statement>* end
type Definition struct {
	Pos  lexer.Position
	Name string       `"define" @Ident`
	Body []*Statement `@@* "end"`
}

// Statement is one primitive, control construct, or procedure call.
type Statement struct {
	Pos    lexer.Position
	Step   bool        `  @"step"`
	Left   bool        `| @"left"`
	PickUp bool        `| @"pickup"`
	Place  bool        `| @"place"`
	Stop   bool        `| @"stop"`
	Repeat *RepeatStmt `| @@`
	If     *IfStmt     `| @@`
	Call   string      `| @Ident`
}

// RepeatStmt: repeat <n> times <statement>* end
type RepeatStmt struct {
	Pos   lexer.Position
	Count int          `"repeat" @Int "times"`
	Body  []*Statement `@@* "end"`
}

// IfStmt: if [not] <cond> then <statement>* [else <statement>*] end
type IfStmt struct {
	Pos  lexer.Position
	Not  bool         `"if" @"not"?`
	Cond string       `@("wall" | "flag" | "home" | "north" | "west" | "south" | "east") "then"`
	Then []*Statement `@@*`
	Else []*Statement `("else" @@*)? "end"`
}

// Keywords get their own token type so a bare identifier statement can never
// swallow "end" or "else" and derail the surrounding block.
var karelLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Keyword", Pattern: `(?i)\b(define|end|repeat|times|if|not|then|else|step|left|pickup|place|stop|wall|flag|home|north|west|south|east)\b`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

// Parser parses Karel source into a Program.
var Parser = participle.MustBuild[Program](
	participle.Lexer(karelLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.CaseInsensitive("Keyword"),
)
