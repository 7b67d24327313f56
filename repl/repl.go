// Package repl implements the Read-Eval-Print Loop for Eva.
//
// The REPL provides an interactive interface for users to enter Eva code,
// have it evaluated, and see the results immediately. It uses the Charm
// libraries (Bubbletea, Bubbles, and Lipgloss) to create a modern,
// user-friendly terminal interface with features like syntax highlighting
// and command history.
//
// Key features:
//   - Interactive command input and execution
//   - Command history tracking
//   - Styled output with different colors for results and errors
//   - A persistent VM (globals and heap) across commands
//
// The main entry point is the Start function, which initializes and runs the
// REPL with the given username.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/eva/lexer"
	"github.com/dr8co/eva/token"
	"github.com/dr8co/eva/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = "eva> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = " .. "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode with more verbose output
}

// Start initializes and runs the REPL with the given username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// reservedHeads are the symbols the compiler treats as special forms rather
// than ordinary function-call heads, highlighted as keywords in the REPL's
// echo of a line's input.
var reservedHeads = map[string]bool{
	"var": true, "set": true, "begin": true, "if": true, "while": true,
	"def": true, "lambda": true, "true": true, "false": true,
}

// errorKind classifies a failed evaluation for styling and tips.
type errorKind int

const (
	noError errorKind = iota
	parseErrorKind
	runtimeErrorKind
)

// evalResultMsg carries an asynchronous evaluation's outcome back into Update.
type evalResultMsg struct {
	output  string
	isError bool
	kind    errorKind
	elapsed time.Duration
}

// model represents the state of the REPL application.
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	vm              *vm.VM
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to text, respecting the NoColor option.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	kind           errorKind
	evaluationTime time.Duration
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter Eva code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput:  ti,
		vm:         vm.New(),
		username:   username,
		evaluating: false,
		spinner:    s,
		options:    options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether input's parentheses are balanced. Eva's surface
// syntax has no braces or brackets, so parens are the only delimiter a
// multiline prompt needs to track.
func isBalanced(input string) bool {
	depth := 0
	for _, ch := range input {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// evalCmd evaluates Eva code asynchronously against the REPL's persistent VM.
func evalCmd(input string, machine *vm.VM, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		result, err := machine.Exec(input)

		var output string
		isError := false
		kind := noError

		if err != nil {
			isError = true
			if re, ok := asStructured(err); ok && re.isParse {
				kind = parseErrorKind
				output = formatParseError(re.message)
			} else {
				kind = runtimeErrorKind
				output = formatRuntimeError(err.Error())
			}
		} else {
			output = result.Inspect()
		}

		elapsed := time.Since(start)
		if debug {
			fmt.Printf("DEBUG: eval took %v\n", elapsed)
		}

		return evalResultMsg{output: output, isError: isError, kind: kind, elapsed: elapsed}
	}
}

type structuredError struct {
	isParse bool
	message string
}

// asStructured distinguishes a ParseError-kind vm.RuntimeError (the REPL's
// one case where the VM reports a failure from parsing rather than from
// compiling or executing) so it gets parse-error styling and tips.
func asStructured(err error) (structuredError, bool) {
	re, ok := err.(*vm.RuntimeError)
	if !ok {
		return structuredError{}, false
	}
	return structuredError{isParse: re.Kind == "ParseError", message: re.Message}, true
}

func (m model) formatError(style lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		s.WriteString(m.applyStyle(style, parts[0]))
		s.WriteString("\n")
		s.WriteString(m.applyStyle(historyStyle, "Tips:"+parts[1]))
		return
	}
	s.WriteString(m.applyStyle(style, entry.output))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			kind:           msg.kind,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m.startEval(m.multilineBuffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					return m.startEval(m.multilineBuffer)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.textInput.SetValue("")
			return m.startEval(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// startEval transitions into the evaluating state and kicks off evalCmd for
// buffer, clearing whichever input buffer fed it.
func (m model) startEval(buffer string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = buffer
	m.multilineBuffer = ""
	m.isMultiline = false
	return m, evalCmd(buffer, m.vm, m.options.Debug)
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Eva REPL "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in Eva expressions\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.kind {
			case parseErrorKind:
				m.formatError(parseErrorStyle, &entry, &s)
			case runtimeErrorKind:
				m.formatError(runtimeErrorStyle, &entry, &s)
			default:
				s.WriteString(m.applyStyle(errorStyle, entry.output))
			}
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}

		if entry.evaluationTime > 10*time.Millisecond {
			s.WriteString(m.applyStyle(historyStyle, fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())))
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: enter an empty line to evaluate"
	} else {
		helpText += " | Multiline input supported for unbalanced parens"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

func formatParseError(msg string) string {
	var s strings.Builder
	s.WriteString("Parse Error:\n  ")
	s.WriteString(msg)
	s.WriteString("\n\nTips:\n")
	s.WriteString("  • Check for missing or unbalanced parentheses\n")
	s.WriteString("  • Verify every list has a valid head\n")
	return s.String()
}

func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Error:\n  ")
	s.WriteString(errorMsg)
	s.WriteString("\n\nTips:\n")

	switch {
	case strings.Contains(errorMsg, "UnresolvedName"):
		s.WriteString("  • Check that the name is defined before use (var/def/lambda parameter)\n")
		s.WriteString("  • Verify the spelling matches the binding\n")
	case strings.Contains(errorMsg, "TypeError"):
		s.WriteString("  • Ensure both operands are numbers, or both are strings\n")
	case strings.Contains(errorMsg, "InvalidIndex"):
		s.WriteString("  • This usually indicates a compiler/VM mismatch rather than a source bug\n")
	default:
		s.WriteString("  • Review the expression that produced this error\n")
	}

	return s.String()
}

// highlightCode applies syntax highlighting to one line of Eva source:
// reserved heads as keywords, other symbols plain, numbers and strings as
// literals, parens as delimiters.
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}

		switch tok.Type {
		case token.LPAREN, token.RPAREN:
			s.WriteString(m.applyStyle(delimiterStyle, tok.Literal))
		case token.NUMBER:
			s.WriteString(m.applyStyle(literalStyle, tok.Literal))
		case token.STRING:
			s.WriteString(m.applyStyle(stringStyle, `"`+tok.Literal+`"`))
		case token.SYMBOL:
			if reservedHeads[tok.Literal] {
				s.WriteString(m.applyStyle(keywordStyle, tok.Literal))
			} else {
				s.WriteString(m.applyStyle(symbolStyle, tok.Literal))
			}
		default:
			s.WriteString(tok.Literal)
		}
		s.WriteString(" ")
	}

	return strings.TrimRight(s.String(), " ")
}
