package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// goldenTest runs testdata/<name>.lox and compares its output to
// testdata/<name>.expected.
func goldenTest(t *testing.T, name string) {
	t.Helper()

	loxPath := filepath.Join("testdata", name+".lox")
	expectedPath := filepath.Join("testdata", name+".expected")

	source, err := os.ReadFile(loxPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", loxPath, err)
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", expectedPath, err)
	}

	got, err := runSource(t, string(source))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	expectedLines := strings.Split(strings.TrimRight(string(expected), "\n"), "\n")
	gotLines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if strings.Join(gotLines, "\n") == strings.Join(expectedLines, "\n") {
		return
	}

	t.Errorf("output mismatch for %s", name)
	for i := 0; i < len(expectedLines) || i < len(gotLines); i++ {
		exp, g := "<missing>", "<missing>"
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		prefix := "  "
		if exp != g {
			prefix = "! "
		}
		t.Logf("%sline %d: expected=%q got=%q", prefix, i+1, exp, g)
	}
}

func TestGoldenClosures(t *testing.T) {
	goldenTest(t, "closures")
}

func TestGoldenClasses(t *testing.T) {
	goldenTest(t, "classes")
}

func TestGoldenInheritance(t *testing.T) {
	goldenTest(t, "inheritance")
}

func TestGoldenControlFlow(t *testing.T) {
	goldenTest(t, "control_flow")
}
