package script

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
)

var ErrTooManySteps = fmt.Errorf("script exceeds %d step attempts", engine.MaxScriptSteps)

// Script is a parsed robot program
type Script struct {
	Commands []*Command `parser:"@@*"`
}

// Command is a single statement
type Command struct {
	Pos lexer.Position

	Repeat   *Repeat `parser:"  @@"`
	Recharge bool    `parser:"| @'recharge'"`
	Dive     *Dive   `parser:"| @@"`
	Move     *Move   `parser:"| @@"`
}

// Move is a composite movement; Steps defaults to one
type Move struct {
	Dir   string `parser:"@('forward' | 'backward' | 'back' | 'right' | 'left')"`
	Steps *int   `parser:"@Int?"`
}

// Dive changes depth by a signed distance
type Dive struct {
	Distance int `parser:"'dive' @Int"`
}

// Repeat runs its body Count times
type Repeat struct {
	Count int        `parser:"'repeat' @Int"`
	Body  []*Command `parser:"'{' @@* '}'"`
}

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_]+`},
	{Name: "Punct", Pattern: `[{}]`},
	{Name: "Whitespace", Pattern: `[\s;,]+`},
})

var parser = participle.MustBuild[Script](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.CaseInsensitive("Ident"),
)

// Error is a parse error with its position in the source
type Error struct {
	Line, Column int
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("script:%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parse parses source into a Script and checks its size
func Parse(source string) (*Script, error) {
	s, err := parser.ParseString("script", source)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			pos := perr.Position()
			return nil, &Error{Line: pos.Line, Column: pos.Column, Message: perr.Message()}
		}
		return nil, err
	}
	if s.Attempts() > engine.MaxScriptSteps {
		return nil, ErrTooManySteps
	}
	return s, nil
}

// Attempts returns how many robot actions the script performs once expanded
func (s *Script) Attempts() int {
	return countAttempts(s.Commands)
}

func countAttempts(commands []*Command) int {
	total := 0
	for _, c := range commands {
		var n int
		switch {
		case c.Repeat != nil:
			if c.Repeat.Count > engine.MaxScriptSteps {
				return engine.MaxScriptSteps + 1
			}
			n = max(c.Repeat.Count, 0) * countAttempts(c.Repeat.Body)
		case c.Move != nil:
			n = max(c.Move.steps(), 0)
		default:
			n = 1
		}
		total += min(n, engine.MaxScriptSteps+1)
		if total > engine.MaxScriptSteps {
			// stop early, the exact figure no longer matters
			return total
		}
	}
	return total
}

func (m *Move) steps() int {
	if m.Steps == nil {
		return 1
	}
	return *m.Steps
}
