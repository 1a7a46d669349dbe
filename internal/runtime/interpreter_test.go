package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"lox-lang/internal/lexer"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
)

// runSource scans, parses, resolves and executes source code, returning
// captured stdout and any runtime error. Front-end errors fail the test.
func runSource(t *testing.T, source string, opts ...Option) (string, error) {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lox").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	stmts, parseDiags := parser.New(tokens).Parse()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	locals, resolveDiags := resolver.New().Resolve(stmts)
	if len(resolveDiags) > 0 {
		t.Fatalf("resolve errors: %v", resolveDiags)
	}

	var buf bytes.Buffer
	interp := NewInterpreter(&buf, opts...)
	err := interp.Interpret(stmts, locals)
	return buf.String(), err
}

func expectOutput(t *testing.T, source, expected string) {
	t.Helper()
	out, err := runSource(t, source)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimRight(out, "\n") != strings.TrimRight(expected, "\n") {
		t.Errorf("output mismatch:\nexpected: %q\ngot:      %q", expected, out)
	}
}

// expectError checks the message and line of the runtime error and returns
// the output printed before it.
func expectError(t *testing.T, source, message string, line int) string {
	t.Helper()
	out, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected error %q, got nil", message)
	}
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Message != message {
		t.Errorf("expected message %q, got %q", message, rtErr.Message)
	}
	if rtErr.Line() != line {
		t.Errorf("expected line %d, got %d", line, rtErr.Line())
	}
	return out
}

// ---- Tests ----

func TestPrintLiteral(t *testing.T) {
	expectOutput(t, `print 123;`, "123\n")
	expectOutput(t, `print 3.14;`, "3.14\n")
	expectOutput(t, `print "hello";`, "hello\n")
	expectOutput(t, `print nil;`, "nil\n")
	expectOutput(t, `print true;`, "true\n")
}

func TestArithmetic(t *testing.T) {
	expectOutput(t, `print 2 + 3 * 4;`, "14\n")
	expectOutput(t, `print (1 + 2) * 3;`, "9\n")
	expectOutput(t, `print 10 - 5 + 3 * 2;`, "11\n")
	expectOutput(t, `print 10 / 4;`, "2.5\n")
	expectOutput(t, `print -5;`, "-5\n")
}

func TestNonFiniteNumbers(t *testing.T) {
	expectOutput(t, `print 1 / 0;`, "Infinity\n")
	expectOutput(t, `print -1 / 0;`, "-Infinity\n")
	expectOutput(t, `print 0 / 0;`, "NaN\n")
}

func TestStringConcat(t *testing.T) {
	expectOutput(t, `print "quz" + "bar" + "baz" == "quzbarbaz";`, "true\n")
	expectOutput(t, `print "hello" + " " + "world";`, "hello world\n")
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, `print !nil; print !false; print !0; print !"";`, "true\ntrue\nfalse\nfalse\n")
	expectOutput(t, `if (0) print "zero is truthy";`, "zero is truthy\n")
}

func TestEquality(t *testing.T) {
	expectOutput(t, `print nil == false;`, "false\n")
	expectOutput(t, `print 1 == "1";`, "false\n")
	expectOutput(t, `print nil == nil;`, "true\n")
	expectOutput(t, `print nil != false;`, "true\n")
	expectOutput(t, `print "hello" != "hello";`, "false\n")
	expectOutput(t, `class A {} var a = A(); var b = A(); print a == a; print a == b;`, "true\nfalse\n")
}

func TestLogicalOps(t *testing.T) {
	expectOutput(t, `print nil or "yes";`, "yes\n")
	expectOutput(t, `print "first" or "second";`, "first\n")
	expectOutput(t, `print nil and "never";`, "nil\n")
	expectOutput(t, `print 1 and 2;`, "2\n")
	// the right operand is not evaluated once the left decides
	expectOutput(t, `var a = "unchanged"; false and (a = "changed"); true or (a = "changed"); print a;`, "unchanged\n")
}

func TestVarDecl(t *testing.T) {
	expectOutput(t, `var x = 10; print x; var y; print y;`, "10\nnil\n")
}

func TestAssignment(t *testing.T) {
	expectOutput(t, `
var quz;
quz = 1;
print quz;
print quz = 2;
print quz;
`, "1\n2\n2\n")
	expectOutput(t, `
var quz;
var hello;
quz = hello = 16 + 34 * 92;
print quz;
print hello;
`, "3144\n3144\n")
}

func TestBlocks(t *testing.T) {
	expectOutput(t, `
var a = "global";
{
  var a = "outer";
  {
    var a = "inner";
    print a;
  }
  print a;
}
print a;
{}
`, "inner\nouter\nglobal\n")
}

func TestIfElse(t *testing.T) {
	expectOutput(t, `if (true) print "bar";`, "bar\n")
	expectOutput(t, `if (false) print "no"; else print "else";`, "else\n")
	expectOutput(t, `var a = false; if (a = true) { print (a == true); }`, "true\n")
}

func TestWhileLoop(t *testing.T) {
	expectOutput(t, `
var i = 0;
var sum = 0;
while (i < 5) {
  sum = sum + i;
  i = i + 1;
}
print sum;
`, "10\n")
}

func TestForLoop(t *testing.T) {
	expectOutput(t, `for (var i = 0; i < 3; i = i + 1) print i;`, "0\n1\n2\n")
	expectOutput(t, `
var a = 0;
var temp;
for (var b = 1; a < 50; b = temp + b) {
  print a;
  temp = a;
  a = b;
}
`, "0\n1\n1\n2\n3\n5\n8\n13\n21\n34\n")
}

func TestFunction(t *testing.T) {
	expectOutput(t, `fun f3(a, b, c) { print a + b + c; } f3(24, 24, 24);`, "72\n")
	expectOutput(t, `fun f8(a, b, c, d, e, f, g, h) { print a - b + c * d + e - f + g - h; } f8(51, 51, 51, 51, 51, 51, 51, 51);`, "2601\n")
	expectOutput(t, `fun f() {} print f();`, "nil\n")
	expectOutput(t, `fun f() { while (!true) return "ok"; } print f();`, "nil\n")
	expectOutput(t, `fun f() { if (false) return "no"; else return "ok"; } print f();`, "ok\n")
}

func TestFunctionDisplay(t *testing.T) {
	expectOutput(t, `fun foo() {} print foo;`, "<fn foo>\n")
	expectOutput(t, `print clock;`, "<fn clock>\n")
	expectOutput(t, `class Foo { bar() {} } print Foo; print Foo().bar;`, "Foo\n<fn bar>\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 2) + fib(n - 1);
}
print fib(10) == 55;
`, "true\n")
}

func TestReturnUnwindsBlocks(t *testing.T) {
	expectOutput(t, `
var a = "global";
fun f() {
  var a = "local";
  {
    {
      return a;
    }
  }
}
print f();
print a;
`, "local\nglobal\n")
}

func TestClosure(t *testing.T) {
	expectOutput(t, `
fun makeCounter() {
  var count = 0;
  fun inc() {
    count = count + 1;
    return count;
  }
  return inc;
}
var c1 = makeCounter();
var c2 = makeCounter();
print c1();
print c1();
print c2();
`, "1\n2\n1\n")
}

func TestClosureCounterWithShadowing(t *testing.T) {
	expectOutput(t, `
var count = 0;
{
  fun makeCounter() {
    fun counter() {
      count = count + 1;
      print count;
    }
    return counter;
  }

  var counter1 = makeCounter();
  counter1();
  counter1();

  var count = 0;

  counter1();
}
`, "1\n2\n3\n")
}

func TestClosureWithFunctionRedefinition(t *testing.T) {
	expectOutput(t, `
fun global() { print "global"; }
{
  fun f() { global(); }
  f();
  fun global() { print "local"; }
  f();
}
`, "global\nglobal\n")
}

func TestNestedClosuresWithShadowing(t *testing.T) {
	expectOutput(t, `
var x = "global";
fun outer() {
  var x = "outer";
  fun middle() {
    fun inner() { print x; }
    inner();
    var x = "middle";
    inner();
  }
  middle();
}
outer();
`, "outer\nouter\n")
}

func TestClassFieldsAndMethods(t *testing.T) {
	expectOutput(t, `
class Superhero {}
var batman = Superhero();
var superman = Superhero();
batman.name = "Batman";
batman.called = 18;
superman.name = "Superman";
superman.called = 66;
print "Times " + superman.name + " was called: ";
print superman.called;
print batman.name;
print batman.called;
`, "Times Superman was called: \n66\nBatman\n18\n")
}

func TestMethodsBindThis(t *testing.T) {
	expectOutput(t, `
class Car {
  init(make, model) {
    this.make = make;
    this.model = model;
    this.wheels = "four";
  }
  describe() {
    print this.make + " " + this.model + " with " + this.wheels + " wheels";
  }
}
var myCar = Car("Toyota", "Corolla");
var describe = myCar.describe;
describe();
`, "Toyota Corolla with four wheels\n")
}

func TestFieldsShadowMethods(t *testing.T) {
	expectOutput(t, `
class A { m() { return "method"; } }
var a = A();
a.m = "field";
print a.m;
`, "field\n")
}

func TestInitializerReturnsInstance(t *testing.T) {
	expectOutput(t, `
class Counter {
  init(startValue) {
    if (startValue < 0) {
      print "startValue can't be negative";
      this.count = 0;
    } else {
      this.count = startValue;
    }
  }
}
var instance = Counter(-52);
print instance.count;
print instance.init(52).count;
`, "startValue can't be negative\n0\n52\n")

	expectOutput(t, `
class Foo {
  init() {
    this.x = 1;
    return;
  }
}
var foo = Foo();
print foo.init() == foo;
`, "true\n")
}

func TestInheritance(t *testing.T) {
	expectOutput(t, `
class A {}
class B < A {}
print A();
print B();
`, "A instance\nB instance\n")

	expectOutput(t, `
class Vehicle { wheels() { return 4; } }
class Car < Vehicle {}
class Sedan < Car {}
print Sedan().wheels();
`, "4\n")
}

func TestSuperCalls(t *testing.T) {
	expectOutput(t, `
class A {
  method() { print "A method"; }
}
class B < A {
  method() { print "B method"; }
  test() { super.method(); }
}
class C < B {}
C().test();
`, "A method\n")

	expectOutput(t, `
class Base {
  init(a) { this.a = a; }
}
class Derived < Base {
  init(a, b) {
    super.init(a);
    this.b = b;
  }
}
var d = Derived(1, 2);
print d.a + d.b;
`, "3\n")
}

func TestInheritedInitializerArity(t *testing.T) {
	expectOutput(t, `
class Base { init(x) { this.x = x; } }
class Derived < Base {}
print Derived(7).x;
`, "7\n")
	expectError(t, "class Base { init(x) {} }\nclass Derived < Base {}\nDerived();",
		"Expected 1 arguments but got 0.", 3)
}

func TestClockNative(t *testing.T) {
	fixed := time.Unix(1700000000, 500000000)
	out, err := runSource(t, `print clock();`, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "1700000000.5\n" {
		t.Errorf("expected fixed clock value, got %q", out)
	}
	expectOutput(t, `var start = clock(); print clock() >= start;`, "true\n")
}

// ---- Runtime errors ----

func TestOperandErrors(t *testing.T) {
	expectError(t, "print 1;\nprint 21 - false;", "Operands must be numbers.", 2)
	expectError(t, `print "hello" + true;`, "Operands must be two numbers or two strings.", 1)
	expectError(t, `print -"hello";`, "Operand must be a number.", 1)
	expectError(t, `print "a" < "b";`, "Operands must be numbers.", 1)
}

func TestErrorStopsExecution(t *testing.T) {
	out := expectError(t, `
print "the expression below is invalid";
49 + "baz";
print "this should not be printed";
`, "Operands must be two numbers or two strings.", 3)
	if out != "the expression below is invalid\n" {
		t.Errorf("unexpected output before error: %q", out)
	}
}

func TestUndefinedVariable(t *testing.T) {
	expectError(t, `print y;`, "Undefined variable 'y'.", 1)
	expectError(t, `y = 1;`, "Undefined variable 'y'.", 1)
}

func TestPropertyErrors(t *testing.T) {
	expectError(t, `class A {} print A().missing;`, "Undefined property 'missing'.", 1)
	expectError(t, `var s = "str"; print s.length;`, "Only instances have properties.", 1)
	expectError(t, `var n = 1; n.field = 2;`, "Only instances have fields.", 1)
	expectError(t, `class A {} class B < A { m() { return super.nope(); } } B().m();`, "Undefined property 'nope'.", 1)
}

func TestCallErrors(t *testing.T) {
	expectError(t, `"not a function"();`, "Can only call functions and classes.", 1)
	expectError(t, `fun f(a, b) {} f(1);`, "Expected 2 arguments but got 1.", 1)
	expectError(t, `clock(1);`, "Expected 0 arguments but got 1.", 1)
	expectError(t, `class A {} A(1);`, "Expected 0 arguments but got 1.", 1)
}

func TestSuperclassMustBeClass(t *testing.T) {
	expectError(t, "var NotAClass = \"so not a class\";\nclass Sub < NotAClass {}", "Superclass must be a class.", 2)
}

func TestMaxCallDepth(t *testing.T) {
	source := "fun loop(n) {\n  return loop(n + 1);\n}\nloop(0);"
	_, err := runSource(t, source, WithMaxCallDepth(100))
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if rtErr.Message != "Stack overflow." || rtErr.Line() != 2 {
		t.Errorf("unexpected error: %s", rtErr.Report())
	}

	out, err := runSource(t, "fun f(n) { if (n > 0) return f(n - 1); return \"done\"; }\nprint f(50);", WithMaxCallDepth(100))
	if err != nil || out != "done\n" {
		t.Errorf("calls within the limit must succeed: %q %v", out, err)
	}
}

func TestRuntimeErrorReport(t *testing.T) {
	_, err := runSource(t, "\n\nprint -nil;")
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if got := rtErr.Report(); got != "Operand must be a number.\n[line 3]" {
		t.Errorf("unexpected report: %q", got)
	}
}

func TestInterpreterIsReusable(t *testing.T) {
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)
	r := resolver.New()

	for _, src := range []string{
		`fun make() { var n = 0; fun inc() { n = n + 1; return n; } return inc; }`,
		`var c = make();`,
		`print c(); print c();`,
	} {
		tokens, _ := lexer.New(src, "repl").Tokenize()
		stmts, _ := parser.New(tokens).Parse()
		locals, _ := r.Resolve(stmts)
		if err := interp.Interpret(stmts, locals); err != nil {
			t.Fatalf("%s: %v", src, err)
		}
	}
	if buf.String() != "1\n2\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
	if _, ok := interp.Globals().Get("make"); !ok {
		t.Error("global 'make' should persist between calls")
	}
}

func TestEvaluateExpression(t *testing.T) {
	cases := []struct{ source, want string }{
		{`((1 + 2) * (3 + 4))`, "21"},
		{`10 / 3`, "3.3333333333333335"},
		{`!!false`, "false"},
		{`-123`, "-123"},
		{`"hello" != "world"`, "true"},
	}
	for _, c := range cases {
		tokens, _ := lexer.New(c.source, "test.lox").Tokenize()
		expr, diags := parser.New(tokens).ParseExpression()
		if len(diags) > 0 {
			t.Fatalf("%s: %v", c.source, diags)
		}
		v, err := NewInterpreter(&bytes.Buffer{}).Evaluate(expr)
		if err != nil {
			t.Fatalf("%s: %v", c.source, err)
		}
		if v.String() != c.want {
			t.Errorf("%s: expected %s, got %s", c.source, c.want, v.String())
		}
	}
}
