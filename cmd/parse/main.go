package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/ir"
	"github.com/alexhholmes/pdugen/internal/parser"
)

func main() {
	plans := flag.Bool("plans", false, "print the planned actions of every class")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-plans] <file.xml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := flag.Arg(0)
	reg, err := parser.ParseFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := reg.Seal(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if reg.Len() == 0 {
		fmt.Println("No classes found")
		return
	}

	prog, err := analyzer.PlanAll(reg, analyzer.Options{PrimitiveDynamicLists: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, cp := range prog.Plans {
		c := cp.Class
		layout, err := analyzer.Analyze(reg, c.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", c.Name, err)
			continue
		}

		size := "dynamic"
		if layout.StaticSize >= 0 {
			size = fmt.Sprint(layout.StaticSize)
		}
		fmt.Printf("\n%s (parent=%s, size=%s)\n", c.Name, parentName(c), size)
		fmt.Println("Regions:")
		for _, r := range layout.Regions {
			fmt.Printf("  %-28s %-12s %-8s ", r.Attr.Name, ir.KindName(r.Attr.Kind), r.Kind)
			if r.Start >= 0 && r.Boundary >= 0 {
				fmt.Printf("[%d, %d)", r.Start, r.Boundary)
			} else if r.Start >= 0 {
				fmt.Printf("@%d", r.Start)
			}
			if r.Class != c.Name {
				fmt.Printf(" from %s", r.Class)
			}
			fmt.Println()
		}

		for _, ba := range cp.BitFields {
			fmt.Printf("  bits %-23s %s & %s >> %d\n", ba.Name, ba.Field, ba.Mask, ba.Shift)
		}
		for _, w := range cp.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}

		if *plans {
			printActions("init", cp.Init)
			printActions("marshal", cp.Marshal)
			printActions("unmarshal", cp.Unmarshal)
			printActions("size", cp.Size)
		}
	}
}

func parentName(c *ir.ClassDescription) string {
	if c.HasParent() {
		return c.Parent
	}
	return ir.RootName
}

func printActions(label string, acts []analyzer.Action) {
	fmt.Printf("  %s:\n", label)
	for _, a := range acts {
		fmt.Printf("    %-18s %s", a.Op, a.Attr)
		if a.Class != "" {
			fmt.Printf(" class=%s", a.Class)
		}
		if a.Type != "" {
			fmt.Printf(" type=%s", a.Type)
		}
		if a.Length > 0 {
			fmt.Printf(" len=%d", a.Length)
		}
		if a.Count != "" {
			fmt.Printf(" count=%s", a.Count)
		}
		if a.List != "" {
			fmt.Printf(" list=%s", a.List)
		}
		if a.Value != "" {
			fmt.Printf(" value=%s", a.Value)
		}
		fmt.Println()
	}
}
