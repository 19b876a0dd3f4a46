package example

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/codegen"
	"github.com/alexhholmes/pdugen/internal/config"
	"github.com/alexhholmes/pdugen/internal/interp"
	"github.com/alexhholmes/pdugen/internal/parser"
)

func load(t testing.TB) *analyzer.Program {
	reg, err := parser.ParseFile("pdus.xml")
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	prog, err := analyzer.PlanAll(reg, analyzer.Options{})
	if err != nil {
		t.Fatalf("PlanAll() error: %v", err)
	}
	return prog
}

func Example() {
	check := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	reg, err := parser.ParseFile("pdus.xml")
	check(err)
	check(reg.Seal())
	prog, err := analyzer.PlanAll(reg, analyzer.Options{})
	check(err)
	m := interp.New(prog)

	msg, err := m.New("Message")
	check(err)
	for _, key := range []uint64{1, 2} {
		rec, err := m.New("Record")
		check(err)
		check(rec.SetUint("key", key))
		if key == 1 {
			check(m.SetBits(rec, "active", 1))
			check(m.SetBits(rec, "priority", 5))
		}
		check(msg.Append("records", rec))
	}

	size, err := m.Size(msg)
	check(err)
	buf, err := m.Marshal(msg)
	check(err)
	fmt.Println("size", size)
	fmt.Printf("% x\n", buf)

	decoded, err := m.Decode("Message", buf)
	check(err)
	priority, err := m.GetBits(decoded.List("records")[0], "priority")
	check(err)
	fmt.Println("records", decoded.Uint("numRecords"), "priority", priority)

	// Output:
	// size 13
	// 02 00 02 00 00 00 01 0b 00 00 00 02 00
	// records 2 priority 5
}

// TestGeneratedPackageIsCurrent regenerates the message package from
// pdugen.toml and compares it with the copy in the tree.
func TestGeneratedPackageIsCurrent(t *testing.T) {
	cfg, err := config.Load("pdugen.toml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input != "pdus.xml" || len(cfg.Backends) != 1 || cfg.Backends[0].Dir != "message" {
		t.Fatalf("config = %+v", cfg)
	}

	b := cfg.Backends[0]
	backend, err := codegen.NewBackend(b.Name, codegen.BackendOptions{Package: b.Package})
	if err != nil {
		t.Fatalf("NewBackend(%s) error: %v", b.Name, err)
	}

	out := t.TempDir()
	gen := codegen.NewGenerator(load(t), codegen.Options{OutDir: out, Clean: cfg.Clean, Workers: 2},
		codegen.Target{Backend: backend, Dir: b.Dir})
	report, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	names := []string{"doc.go", "message.go", "point.go", "record.go", "route.go"}
	var want []string
	for _, n := range names {
		want = append(want, filepath.Join(out, "message", n))
	}
	if strings.Join(report.Files, "\n") != strings.Join(want, "\n") {
		t.Fatalf("files = %v, want %v", report.Files, want)
	}

	for _, n := range names {
		got, err := os.ReadFile(filepath.Join(out, "message", n))
		if err != nil {
			t.Fatal(err)
		}
		kept, err := os.ReadFile(filepath.Join("message", n))
		if err != nil {
			t.Fatal(err)
		}
		// Compare tokens, not layout: gofmt alignment is not part of the contract
		if squash(got) != squash(kept) {
			t.Errorf("message/%s is stale; run go generate\n--- generated ---\n%s", n, got)
		}
	}
}

func squash(src []byte) string {
	return strings.Join(strings.Fields(string(src)), "")
}
