package lexer

import (
	"testing"

	"mico/internal/token"
)

func TestNextTokenBasic(t *testing.T) {
	input := `let five = 5;
let add = fn(x, y) {
  x + y;
};
let result = add(five, 10);
!-/ *5;
5 < 10 > 5;

if (5 < 10) {
	return true;
} else {
	return false;
}

10 == 10;
10 != 9;
"foobar"
"foo bar"
[1, 2];
{"a": 1};
`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LET, "let"}, {token.IDENT, "five"}, {token.ASSIGN, "="}, {token.INT, "5"}, {token.SEMICOLON, ";"},
		{token.LET, "let"}, {token.IDENT, "add"}, {token.ASSIGN, "="}, {token.FUNCTION, "fn"},
		{token.LPAREN, "("}, {token.IDENT, "x"}, {token.COMMA, ","}, {token.IDENT, "y"}, {token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"}, {token.PLUS, "+"}, {token.IDENT, "y"}, {token.SEMICOLON, ";"},
		{token.RBRACE, "}"}, {token.SEMICOLON, ";"},
		{token.LET, "let"}, {token.IDENT, "result"}, {token.ASSIGN, "="}, {token.IDENT, "add"},
		{token.LPAREN, "("}, {token.IDENT, "five"}, {token.COMMA, ","}, {token.INT, "10"}, {token.RPAREN, ")"}, {token.SEMICOLON, ";"},
		{token.BANG, "!"}, {token.MINUS, "-"}, {token.SLASH, "/"}, {token.ASTERISK, "*"}, {token.INT, "5"}, {token.SEMICOLON, ";"},
		{token.INT, "5"}, {token.LT, "<"}, {token.INT, "10"}, {token.GT, ">"}, {token.INT, "5"}, {token.SEMICOLON, ";"},
		{token.IF, "if"}, {token.LPAREN, "("}, {token.INT, "5"}, {token.LT, "<"}, {token.INT, "10"}, {token.RPAREN, ")"},
		{token.LBRACE, "{"}, {token.RETURN, "return"}, {token.TRUE, "true"}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.ELSE, "else"}, {token.LBRACE, "{"}, {token.RETURN, "return"}, {token.FALSE, "false"}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.INT, "10"}, {token.EQ, "=="}, {token.INT, "10"}, {token.SEMICOLON, ";"},
		{token.INT, "10"}, {token.NOTEQ, "!="}, {token.INT, "9"}, {token.SEMICOLON, ";"},
		{token.STRING, "foobar"}, {token.STRING, "foo bar"},
		{token.LBRACKET, "["}, {token.INT, "1"}, {token.COMMA, ","}, {token.INT, "2"}, {token.RBRACKET, "]"}, {token.SEMICOLON, ";"},
		{token.LBRACE, "{"}, {token.STRING, "a"}, {token.COLON, ":"}, {token.INT, "1"}, {token.RBRACE, "}"}, {token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal %q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNumberLiteralsAndRadixes(t *testing.T) {
	tests := []struct {
		input   string
		typ     token.Type
		literal string
		radix   int
	}{
		{"123", token.INT, "123", 10},
		{"0b1010", token.INT, "1010", 2},
		{"0t210", token.INT, "210", 3},
		{"0o17", token.INT, "17", 8},
		{"0x1F", token.INT, "1F", 16},
		{"3.14", token.FLOAT, "3.14", 0},
		{"1e10", token.FLOAT, "1e10", 0},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal || tok.Radix != tt.radix {
			t.Errorf("input %q: got {%s %q radix=%d}, want {%s %q radix=%d}",
				tt.input, tok.Type, tok.Literal, tok.Radix, tt.typ, tt.literal, tt.radix)
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := `1 // line comment
	+ /* block
	comment */ 2`
	l := New(input)
	var types []token.Type
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		types = append(types, tok.Type)
	}
	want := []token.Type{token.INT, token.PLUS, token.INT}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got %v, want %v", types, want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\tc\"d"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	want := "a\nb\tc\"d"
	if tok.Literal != want {
		t.Fatalf("got %q, want %q", tok.Literal, want)
	}
}

func TestPositionTracking(t *testing.T) {
	l := New("let\nx = 1")
	_ = l.NextToken() // let, line 1
	tok := l.NextToken()
	if tok.Pos.Line != 2 {
		t.Fatalf("expected identifier on line 2, got line %d", tok.Pos.Line)
	}
}
